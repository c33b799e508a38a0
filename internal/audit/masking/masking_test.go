package masking

import "testing"

func TestMaskSecretKeepsPrefixAndSuffix(t *testing.T) {
	got := MaskSecret("t=1700000000,v1_5257a869e7ecebeda32affa62cdca3fa51cad7e77a0e56ff536d0ce8e108d8bd")
	want := "t=1700000000,v1_****d8bd"
	if got != want {
		t.Fatalf("MaskSecret() = %q, want %q", got, want)
	}
	if got := MaskSecret("abc"); got != "****" {
		t.Fatalf("short secret should be fully masked, got %q", got)
	}
}

func TestMaskSensitiveMasksWholeSubtree(t *testing.T) {
	masked := MaskSensitive(map[string]any{
		"token": map[string]any{"value": "tok_99998888", "kind": []any{"bearer_abcdefgh"}},
		"count": 3,
		"plain": []any{"visible"},
		" ":     "dropped",
	})
	sub := masked["token"].(map[string]any)
	if sub["value"] != "tok_****8888" {
		t.Fatalf("unexpected nested mask %v", sub["value"])
	}
	if sub["kind"].([]any)[0] != "bearer_****efgh" {
		t.Fatalf("unexpected slice mask %v", sub["kind"])
	}
	if masked["count"] != 3 || masked["plain"].([]any)[0] != "visible" {
		t.Fatalf("values outside secret keys must pass through")
	}
	if _, ok := masked[" "]; ok {
		t.Fatalf("blank keys must be dropped")
	}
}

func TestMaskSensitiveOnlyTouchesSecretKeys(t *testing.T) {
	masked := MaskSensitive(map[string]any{
		"reason":       "invalid_signature",
		"signature":    "t=1,v1=abcdef0123456789",
		"auth_token":   "tok_12345678",
		"pack":         "basic",
		"nested":       map[string]any{"Secret": "whsec_abcdef123456"},
		"candidate_id": int64(9),
	})
	if masked["reason"] != "invalid_signature" || masked["pack"] != "basic" {
		t.Fatalf("plain values must be kept, got %v", masked)
	}
	if masked["signature"] == "t=1,v1=abcdef0123456789" {
		t.Fatalf("signature must be masked")
	}
	if masked["auth_token"] != "tok_****5678" {
		t.Fatalf("unexpected token mask %v", masked["auth_token"])
	}
	if masked["nested"].(map[string]any)["Secret"] != "whsec_****3456" {
		t.Fatalf("nested secrets must be masked")
	}
	if masked["candidate_id"] != int64(9) {
		t.Fatalf("non-string values must pass through")
	}
}
