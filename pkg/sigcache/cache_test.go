package sigcache

import (
	"testing"
	"time"
)

func TestGetPut_RoundTrip(t *testing.T) {
	c := New(60 * time.Second)
	sigs := []Signature{{Signature: "a"}, {Signature: "b"}}
	c.Put("addr1", sigs)

	got, ok := c.Get("addr1", 2)
	if !ok || len(got) != 2 {
		t.Fatalf("expected hit with 2 entries, got ok=%v len=%d", ok, len(got))
	}
}

func TestGet_MissOnExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Put("addr1", []Signature{{Signature: "a"}})
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("addr1", 1)
	if ok {
		t.Fatal("expected miss after TTL expiry")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be evicted, Len()=%d", c.Len())
	}
}

func TestGet_MissOnMinSize(t *testing.T) {
	c := New(60 * time.Second)
	c.Put("addr1", []Signature{{Signature: "a"}})

	_, ok := c.Get("addr1", 5)
	if ok {
		t.Fatal("expected miss when cached list is smaller than min_size")
	}
}

func TestPut_LastWriterWins(t *testing.T) {
	c := New(60 * time.Second)
	c.Put("addr1", []Signature{{Signature: "a"}})
	c.Put("addr1", []Signature{{Signature: "b"}, {Signature: "c"}})

	got, ok := c.Get("addr1", 1)
	if !ok || len(got) != 2 || got[0].Signature != "b" {
		t.Fatalf("expected latest write to win, got %+v", got)
	}
}
