package question

import "testing"

func TestBank(t *testing.T) {
	bank := Bank()
	if len(bank) != 10 {
		t.Fatalf("bank has %d questions, want 10", len(bank))
	}
	for i, q := range bank {
		if q.ID != i+1 {
			t.Fatalf("question %d has id %d", i, q.ID)
		}
		if q.Text == "" || q.Summary == "" {
			t.Fatalf("question %d has empty text or summary", q.ID)
		}
		for j, label := range q.ScaleLabels {
			if label == "" {
				t.Fatalf("question %d scale label %d is empty", q.ID, j+1)
			}
		}
	}
}

func TestAnswerBounds(t *testing.T) {
	if MinAnswer != 1 || MaxAnswer != 4 {
		t.Fatalf("answer scale = %d..%d, want 1..4", MinAnswer, MaxAnswer)
	}
}

func TestBankReturnsCopy(t *testing.T) {
	a := Bank()
	a[0].Text = "mutated"
	if b := Bank(); b[0].Text == "mutated" {
		t.Fatalf("Bank must return an independent copy")
	}
}
