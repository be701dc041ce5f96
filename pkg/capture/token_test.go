package capture

import (
	"strings"
	"testing"
	"time"
)

func TestValidateAPIKeyFormat(t *testing.T) {
	t.Parallel()

	good := "cap_" + strings.Repeat("a", 28)
	if _, cerr := ValidateAPIKeyFormat(good); cerr != nil {
		t.Fatalf("valid key rejected: %v", cerr)
	}
	if _, cerr := ValidateAPIKeyFormat("cap_short"); cerr == nil {
		t.Fatalf("short key accepted")
	}
	if _, cerr := ValidateAPIKeyFormat("key_" + strings.Repeat("a", 28)); cerr == nil {
		t.Fatalf("wrong prefix accepted")
	}
}

func TestMintAndDecodeWSToken(t *testing.T) {
	t.Parallel()

	apiKey := "cap_" + strings.Repeat("a", 28)
	validated, cerr := ValidateAPIKeyFormat(apiKey)
	if cerr != nil {
		t.Fatalf("key validation failed: %v", cerr)
	}

	token, cerr := MintWSToken(validated, "user-9")
	if cerr != nil {
		t.Fatalf("mint failed: %v", cerr)
	}
	if IsTokenExpired(token) {
		t.Fatalf("fresh token reports expired")
	}
	if remaining := time.UnixMilli(token.ExpiresAt).Sub(time.Now()); remaining > 10*time.Minute || remaining < 9*time.Minute {
		t.Fatalf("unexpected expiry window: %s", remaining)
	}

	claims, cerr := DecodeWSToken(token.Token, apiKey)
	if cerr != nil {
		t.Fatalf("decode failed: %v", cerr)
	}
	if claims["userId"] != "user-9" {
		t.Fatalf("user claim missing: %v", claims)
	}
	ref, _ := claims["ref"].(string)
	if ref != "cap_aaaa..." {
		t.Fatalf("claims must carry only a truncated key reference, got %q", ref)
	}
	if strings.Contains(token.Token, apiKey) {
		t.Fatalf("full key leaked into the token")
	}
}

func TestDecodeWSTokenRejectsWrongKey(t *testing.T) {
	t.Parallel()

	apiKey := "cap_" + strings.Repeat("a", 28)
	validated, _ := ValidateAPIKeyFormat(apiKey)
	token, cerr := MintWSToken(validated, "")
	if cerr != nil {
		t.Fatalf("mint failed: %v", cerr)
	}

	if _, cerr := DecodeWSToken(token.Token, "cap_"+strings.Repeat("b", 28)); cerr == nil {
		t.Fatalf("token verified against the wrong key")
	}
}
