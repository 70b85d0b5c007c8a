package types

import (
	"math/big"
	"testing"

	"github.com/google/uuid"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"seller", RoleSeller, true},
		{" ARBITER ", RoleArbiter, true},
		{"Admin", RoleAdmin, true},
		{"superuser", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseRole(tc.in)
		if ok != tc.ok {
			t.Fatalf("ParseRole(%q): ok=%v, want %v", tc.in, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseRole(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestArbiterAuthority(t *testing.T) {
	arbiter := &User{ID: uuid.New(), Roles: []Role{RoleArbiter}}
	admin := &User{ID: uuid.New(), Roles: []Role{RoleAdmin}}
	seller := &User{ID: uuid.New(), Roles: []Role{RoleSeller}}

	if !arbiter.Arbiter() || !admin.Arbiter() {
		t.Fatal("arbiters and admins carry arbitration authority")
	}
	if seller.Arbiter() {
		t.Fatal("sellers must not carry arbitration authority")
	}
}

func TestUserCloneIsIndependent(t *testing.T) {
	user := &User{ID: uuid.New(), Roles: []Role{RoleUser}, TrustScore: 80}
	clone := user.Clone()
	clone.Roles[0] = RoleAdmin
	clone.TrustScore = 10

	if user.Roles[0] != RoleUser || user.TrustScore != 80 {
		t.Fatal("mutating the clone must not affect the original")
	}
}

func TestProductStatusValid(t *testing.T) {
	for _, status := range []ProductStatus{ProductAvailable, ProductPending, ProductEscrowLocked, ProductSold} {
		if !status.Valid() {
			t.Fatalf("%s must be valid", status)
		}
	}
	if ProductStatus("MISSING").Valid() {
		t.Fatal("unknown status must be invalid")
	}
}

func TestProductCloneIsIndependent(t *testing.T) {
	product := &Product{ID: uuid.New(), Price: big.NewInt(100), Status: ProductAvailable}
	clone := product.Clone()
	clone.Price.SetInt64(999)
	clone.Status = ProductSold

	if product.Price.Cmp(big.NewInt(100)) != 0 {
		t.Fatal("price must be deep copied")
	}
	if product.Status != ProductAvailable {
		t.Fatal("status must not leak from the clone")
	}
}
