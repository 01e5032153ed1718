package provider

import (
	"fmt"
	"testing"
)

func TestChainStoreCopies(t *testing.T) {
	s := newChainStore[string]()
	msgs := []string{"a", "b"}
	id := s.save(msgs)
	msgs[0] = "mutated"

	got, ok := s.load(id)
	if !ok || got[0] != "a" {
		t.Fatalf("load() = %v, %v", got, ok)
	}

	got[1] = "mutated"
	again, _ := s.load(id)
	if again[1] != "b" {
		t.Error("load() returned shared backing array")
	}
}

func TestChainStoreUnknownToken(t *testing.T) {
	s := newChainStore[string]()
	if _, ok := s.load("nope"); ok {
		t.Error("load() of unknown token succeeded")
	}
}

func TestChainStoreEvictsOldest(t *testing.T) {
	s := newChainStore[string]()
	first := s.save([]string{"first"})
	var last string
	for i := 0; i < maxChains; i++ {
		last = s.save([]string{fmt.Sprint(i)})
	}

	if _, ok := s.load(first); ok {
		t.Error("oldest token survived eviction")
	}
	if _, ok := s.load(last); !ok {
		t.Error("newest token evicted")
	}
}
