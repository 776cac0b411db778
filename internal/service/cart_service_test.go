package service

import (
	"errors"
	"testing"

	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
)

func TestCartAddItemRejectsInvalidQuantity(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	customer := f.createUser(t, "buyer@example.com", constants.RoleCustomer)
	product := f.createProduct(t, seller.ID, "qty", "10.00", 100)

	for _, qty := range []int{0, -1, 51} {
		_, err := f.cart.AddItem(AddCartItemInput{UserID: customer.ID, ProductID: product.ID, Quantity: qty})
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("quantity %d: expected ErrInvalidQuantity, got %v", qty, err)
		}
	}
	if _, err := f.cart.AddItem(AddCartItemInput{UserID: customer.ID, ProductID: 999, Quantity: 1}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := f.cart.AddItem(AddCartItemInput{ProductID: product.ID, Quantity: 1}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("anonymous add should be forbidden, got %v", err)
	}
}

func TestCartAddItemMergesQuantity(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	customer := f.createUser(t, "buyer@example.com", constants.RoleCustomer)
	product := f.createProduct(t, seller.ID, "merge", "10.00", 100)

	f.addToCart(t, customer.ID, product.ID, 20, "")
	item, err := f.cart.AddItem(AddCartItemInput{UserID: customer.ID, ProductID: product.ID, Quantity: 25})
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if item.Quantity != 45 {
		t.Fatalf("expected merged quantity 45, got %d", item.Quantity)
	}
	if _, err := f.cart.AddItem(AddCartItemInput{UserID: customer.ID, ProductID: product.ID, Quantity: 6}); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("merged quantity above limit should fail, got %v", err)
	}
	items := f.cartItems(t, customer.ID)
	if len(items) != 1 || items[0].Quantity != 45 {
		t.Fatalf("unexpected cart rows: %+v", items)
	}
}

func TestCartFirstAttributionWins(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	customer := f.createUser(t, "buyer@example.com", constants.RoleCustomer)
	first := f.createAffiliate(t, "first@example.com", "AFFFIRST", "10")
	second := f.createAffiliate(t, "second@example.com", "AFFSECND", "20")
	product := f.createProduct(t, seller.ID, "attribution", "10.00", 10)

	f.addToCart(t, customer.ID, product.ID, 1, first.AffiliateCode)
	f.addToCart(t, customer.ID, product.ID, 1, second.AffiliateCode)

	items := f.cartItems(t, customer.ID)
	if len(items) != 1 {
		t.Fatalf("expected 1 cart row, got %d", len(items))
	}
	if items[0].AffiliateProfileID == nil || *items[0].AffiliateProfileID != first.ID {
		t.Fatalf("expected first affiliate %d to keep attribution, got %+v", first.ID, items[0].AffiliateProfileID)
	}
	if items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", items[0].Quantity)
	}
}

func TestCartAttributionLaterRefFillsEmpty(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	customer := f.createUser(t, "buyer@example.com", constants.RoleCustomer)
	affiliate := f.createAffiliate(t, "aff@example.com", "AFFLATE1", "10")
	product := f.createProduct(t, seller.ID, "late-ref", "10.00", 10)

	f.addToCart(t, customer.ID, product.ID, 1, "")
	f.addToCart(t, customer.ID, product.ID, 1, "unknown-ref")
	items := f.cartItems(t, customer.ID)
	if items[0].AffiliateProfileID != nil {
		t.Fatalf("unknown ref should be ignored, got %+v", items[0].AffiliateProfileID)
	}

	f.addToCart(t, customer.ID, product.ID, 1, affiliate.AffiliateCode)
	items = f.cartItems(t, customer.ID)
	if items[0].AffiliateProfileID == nil || *items[0].AffiliateProfileID != affiliate.ID {
		t.Fatalf("expected attribution to be captured, got %+v", items[0].AffiliateProfileID)
	}
	if items[0].AttributedAt == nil {
		t.Fatal("expected attributed_at to be set")
	}
}

func TestCartSelfReferralIgnored(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	affiliate := f.createAffiliate(t, "self@example.com", "AFFSELF1", "10")
	product := f.createProduct(t, seller.ID, "self-ref", "10.00", 10)

	f.addToCart(t, affiliate.UserID, product.ID, 1, affiliate.AffiliateCode)
	items := f.cartItems(t, affiliate.UserID)
	if len(items) != 1 || items[0].AffiliateProfileID != nil {
		t.Fatalf("self referral must not be attributed: %+v", items)
	}
}

func TestCartSetQuantityAndRemove(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	customer := f.createUser(t, "buyer@example.com", constants.RoleCustomer)
	kept := f.createProduct(t, seller.ID, "kept", "10.00", 10)
	dropped := f.createProduct(t, seller.ID, "dropped", "5.00", 10)

	if err := f.cart.SetQuantity(customer.ID, kept.ID, 2); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("set quantity without cart should fail, got %v", err)
	}
	f.addToCart(t, customer.ID, kept.ID, 1, "")
	f.addToCart(t, customer.ID, dropped.ID, 1, "")

	if err := f.cart.SetQuantity(customer.ID, kept.ID, 7); err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if err := f.cart.SetQuantity(customer.ID, dropped.ID, 0); err != nil {
		t.Fatalf("set quantity 0 failed: %v", err)
	}
	if err := f.cart.SetQuantity(customer.ID, kept.ID, -1); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("negative quantity should fail, got %v", err)
	}
	if err := f.cart.RemoveItem(customer.ID, dropped.ID); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("removing missing item should fail, got %v", err)
	}

	items := f.cartItems(t, customer.ID)
	if len(items) != 1 || items[0].ProductID != kept.ID || items[0].Quantity != 7 {
		t.Fatalf("unexpected cart rows: %+v", items)
	}
}

func TestCartListFlagsUnavailableLines(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	customer := f.createUser(t, "buyer@example.com", constants.RoleCustomer)
	ok := f.createProduct(t, seller.ID, "ok", "10.00", 10)
	short := f.createProduct(t, seller.ID, "short", "4.00", 1)
	flagged := f.createProduct(t, seller.ID, "flag", "99.00", 10)

	f.addToCart(t, customer.ID, ok.ID, 2, "")
	f.addToCart(t, customer.ID, short.ID, 3, "")
	f.addToCart(t, customer.ID, flagged.ID, 1, "")
	if err := f.catalog.Moderate(flagged.ID, false); err != nil {
		t.Fatalf("moderate failed: %v", err)
	}

	view, err := f.cart.List(customer.ID)
	if err != nil {
		t.Fatalf("list cart failed: %v", err)
	}
	if len(view.Items) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(view.Items))
	}
	byProduct := make(map[uint]CartLine)
	for _, line := range view.Items {
		byProduct[line.ProductID] = line
	}
	if !byProduct[ok.ID].Available || byProduct[ok.ID].InsufficientStock {
		t.Fatalf("unexpected flags for available line: %+v", byProduct[ok.ID])
	}
	if !byProduct[short.ID].InsufficientStock {
		t.Fatalf("expected insufficient stock flag: %+v", byProduct[short.ID])
	}
	if byProduct[flagged.ID].Available {
		t.Fatalf("flagged product should be unavailable: %+v", byProduct[flagged.ID])
	}
	if got := view.EstimatedTotal.String(); got != "32.00" {
		t.Fatalf("expected estimated total 32.00, got %s", got)
	}
}

func TestCartListEmpty(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	view, err := f.cart.List(42)
	if err != nil {
		t.Fatalf("list empty cart failed: %v", err)
	}
	if view.CartID != 0 || len(view.Items) != 0 || view.EstimatedTotal.String() != "0.00" {
		t.Fatalf("unexpected empty cart view: %+v", view)
	}
}
