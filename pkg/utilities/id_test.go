package utilities

import "testing"

func TestNewLeadToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		tok := NewLeadToken()
		if len(tok) != LeadTokenLength {
			t.Fatalf("token %q length = %d, want %d", tok, len(tok), LeadTokenLength)
		}
		for _, c := range tok {
			if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z') {
				t.Fatalf("token %q contains %q", tok, c)
			}
		}
		seen[tok] = true
	}
	// 1000 draws from a 36^8 space should never collide
	if len(seen) != 1000 {
		t.Fatalf("got %d distinct tokens out of 1000", len(seen))
	}
}

func TestNewSnowflakeID(t *testing.T) {
	a := NewSnowflakeID()
	b := NewSnowflakeID()
	if a == 0 || b == 0 {
		t.Fatal("zero snowflake id")
	}
	if a == b {
		t.Fatal("consecutive snowflake ids collided")
	}
}
