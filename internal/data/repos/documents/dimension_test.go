package documents

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func duplicateKeyErr() error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}}
}

func TestRaceRetryErrorInsideTransaction(t *testing.T) {
	err := raceRetryError(duplicateKeyErr(), true)
	if err == nil {
		t.Fatalf("duplicate key in transaction: want retry error")
	}
	var le mongo.LabeledError
	if !errors.As(fmt.Errorf("resolve state: %w", err), &le) || !le.HasErrorLabel("TransientTransactionError") {
		t.Fatalf("want transient transaction label through wrapping, got %v", err)
	}
	if !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("retry error must still read as a duplicate key: %v", err)
	}
}

func TestRaceRetryErrorOutsideTransaction(t *testing.T) {
	if err := raceRetryError(duplicateKeyErr(), false); err != nil {
		t.Fatalf("outside a transaction the winner is re-read in place, got %v", err)
	}
	if err := raceRetryError(errors.New("network down"), true); err != nil {
		t.Fatalf("other errors pass through untouched, got %v", err)
	}
}
