package worker

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
)

// seqEmbedder returns a one-element vector encoding the text's trailing
// number, so output order is checkable.
type seqEmbedder struct {
	failOn string
}

func (e *seqEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if e.failOn != "" && text == e.failOn {
			return nil, errors.New("backend unavailable")
		}
		n, _ := strconv.Atoi(strings.TrimPrefix(text, "t"))
		out[i] = []float32{float32(n)}
	}
	return out, nil
}

func TestEmbedAll_PreservesInputOrder(t *testing.T) {
	texts := make([]string, 107)
	for i := range texts {
		texts[i] = "t" + strconv.Itoa(i)
	}

	vectors, err := EmbedAll(context.Background(), &seqEmbedder{}, texts, 10, 4)
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}

	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	for i, v := range vectors {
		if int(v[0]) != i {
			t.Fatalf("position %d holds vector for text %d; order not preserved", i, int(v[0]))
		}
	}
}

func TestEmbedAll_PropagatesErrors(t *testing.T) {
	texts := []string{"t0", "t1", "t2", "t3"}

	_, err := EmbedAll(context.Background(), &seqEmbedder{failOn: "t2"}, texts, 2, 2)
	if err == nil {
		t.Fatal("expected error from failing batch")
	}
}

func TestEmbedAll_EmptyInput(t *testing.T) {
	vectors, err := EmbedAll(context.Background(), &seqEmbedder{}, nil, 8, 2)
	if err != nil {
		t.Fatalf("expected no error for empty input, got %v", err)
	}
	if len(vectors) != 0 {
		t.Errorf("expected no vectors, got %d", len(vectors))
	}
}

func TestLimiter_AllowAndDisable(t *testing.T) {
	unlimited := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !unlimited.Allow() {
			t.Fatal("unlimited limiter denied a call")
		}
	}

	limited := NewLimiter(1, 1)
	if !limited.Allow() {
		t.Fatal("expected first call allowed")
	}
	if limited.Allow() {
		t.Error("expected second immediate call denied at 1 rps burst 1")
	}
}
