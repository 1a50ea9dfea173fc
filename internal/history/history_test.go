package history

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestStoreAppendOrderAndCopy(t *testing.T) {
	s := NewStore(0)
	s.Append(NewSingle("A", "gpt-3.5-turbo", "a"))
	s.Append(NewSingle("B", "gpt-4", "b"))
	s.Append(NewCompare("C", map[string]string{"gpt-3.5-turbo": "c1", "gpt-4": "c2"}))

	all := s.All()
	if len(all) != 3 || s.Len() != 3 {
		t.Fatalf("unexpected lengths: all=%d len=%d", len(all), s.Len())
	}
	if all[0].Prompt != "A" || all[1].Prompt != "B" || all[2].Prompt != "C" {
		t.Fatalf("order mismatch: %+v", all)
	}
	if all[2].Model != BothModels {
		t.Fatalf("compare record tag: %q", all[2].Model)
	}
	cr, ok := all[2].Response.(CompareResponse)
	if !ok || len(cr.Answers) != 2 || cr.Answers["gpt-4"] != "c2" {
		t.Fatalf("unexpected compare response: %#v", all[2].Response)
	}
	if _, ok := all[0].Response.(SingleResponse); !ok {
		t.Fatalf("single record must carry SingleResponse, got %T", all[0].Response)
	}

	// Ensure copy semantics (modifying returned slice does not affect internal state)
	all[0] = Record{Prompt: "mutated"}
	if got, _ := s.At(0); got.Prompt != "A" {
		t.Fatalf("internal state mutated via returned slice")
	}
}

func TestNewCompareCopiesAnswers(t *testing.T) {
	answers := map[string]string{"m1": "x", "m2": "y"}
	rec := NewCompare("p", answers)
	answers["m1"] = "changed"
	if rec.Response.(CompareResponse).Answers["m1"] != "x" {
		t.Fatalf("record shares caller's map")
	}
}

func TestStoreRecentNewestFirst(t *testing.T) {
	s := NewStore(0)
	for i := 1; i <= 7; i++ {
		s.Append(NewSingle(fmt.Sprint(i), "m", "r"))
	}
	recent, total := s.Recent(5)
	if total != 7 || len(recent) != 5 {
		t.Fatalf("want 5 of 7, got %d of %d", len(recent), total)
	}
	for i, want := range []string{"7", "6", "5", "4", "3"} {
		if recent[i].Prompt != want {
			t.Fatalf("recent[%d]=%q want %q", i, recent[i].Prompt, want)
		}
	}

	short, total := NewStore(0).Recent(5)
	if len(short) != 0 || total != 0 {
		t.Fatalf("empty store returned %d/%d", len(short), total)
	}
}

func TestStoreCapacityTrimsOldest(t *testing.T) {
	s := NewStore(3)
	for _, p := range []string{"A", "B", "C", "D", "E"} {
		s.Append(NewSingle(p, "m", "r"))
	}
	all := s.All()
	if len(all) != 3 {
		t.Fatalf("want 3 records, got %d", len(all))
	}
	if all[0].Prompt != "C" || all[2].Prompt != "E" {
		t.Fatalf("unexpected records after trim: %+v", all)
	}
}

func TestDisplayIndexToChronological(t *testing.T) {
	cases := []struct {
		display, total, want int
		err                  bool
	}{
		{0, 3, 2, false},
		{2, 3, 0, false},
		{1, 1, 0, true},
		{3, 3, 0, true},
		{-1, 3, 0, true},
		{0, 0, 0, true},
	}
	for _, c := range cases {
		got, err := DisplayIndexToChronological(c.display, c.total)
		if c.err {
			if !errors.Is(err, ErrIndexOutOfRange) {
				t.Fatalf("(%d,%d): want ErrIndexOutOfRange, got %v", c.display, c.total, err)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Fatalf("(%d,%d): got %d, %v want %d", c.display, c.total, got, err, c.want)
		}
	}
}

func TestStoreByDisplayIndex(t *testing.T) {
	s := NewStore(0)
	s.Append(NewSingle("A", "m", "a"))
	s.Append(NewSingle("B", "m", "b"))
	s.Append(NewSingle("C", "m", "c"))

	rec, err := s.ByDisplayIndex(0)
	if err != nil || rec.Prompt != "C" {
		t.Fatalf("display 0: %+v %v", rec, err)
	}
	rec, err = s.ByDisplayIndex(2)
	if err != nil || rec.Prompt != "A" {
		t.Fatalf("display 2: %+v %v", rec, err)
	}
	if _, err := s.ByDisplayIndex(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("want out of range, got %v", err)
	}
}

func TestStoreConcurrentAppend(t *testing.T) {
	s := NewStore(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(NewSingle(fmt.Sprint(i), "m", "r"))
			_, _ = s.Recent(5)
		}(i)
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Fatalf("want 50 records, got %d", s.Len())
	}
}
