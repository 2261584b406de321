package entity

import (
	"regexp"
	"testing"
)

var savingsNumber = regexp.MustCompile(`^5502-[0-9a-f-]{36}$`)

func TestNumberForTypeFormat(t *testing.T) {
	n := NumberForType(TypeSavings)
	if !savingsNumber.MatchString(n) {
		t.Fatalf("savings number %q does not match expected format", n)
	}

	prefixes := map[AccountType]string{
		TypeCash:       "5500",
		TypeChecking:   "5501",
		TypeSavings:    "5502",
		TypeCredit:     "5503",
		TypeInvestment: "5504",
		TypeOther:      "5599",
	}
	for typ, want := range prefixes {
		n := NumberForType(typ)
		if got := n[:4]; got != want {
			t.Errorf("NumberForType(%s) prefix=%q want %q", typ, got, want)
		}
		if n[4] != '-' {
			t.Errorf("NumberForType(%s)=%q missing separator", typ, n)
		}
	}
}

func TestNumberForTypeUnknownFallsBack(t *testing.T) {
	n := NumberForType(AccountType("BOGUS"))
	if n[:4] != "5599" {
		t.Fatalf("unknown type should use the OTHER prefix, got %q", n)
	}
}

func TestNumberForTypeUniqueness(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		num := NumberForType(TypeSavings)
		if _, dup := seen[num]; dup {
			t.Fatalf("duplicate account number after %d draws: %s", i, num)
		}
		seen[num] = struct{}{}
	}
}

func TestValidTypeAndCurrency(t *testing.T) {
	if !ValidType(TypeSavings) || ValidType(AccountType("PIGGYBANK")) {
		t.Error("ValidType misclassified")
	}
	if !ValidCurrency(CurrencyCOP) || ValidCurrency(Currency("GBP")) {
		t.Error("ValidCurrency misclassified")
	}
}
