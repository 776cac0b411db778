package repository

import (
	"testing"
	"time"

	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
)

func TestCartAddQuantityMergesSameProduct(t *testing.T) {
	db := openRepositoryTestDB(t)
	products := NewProductRepository(db)
	product := createActiveProduct(t, products, "cart-merge", 10)
	repo := NewCartRepository(db)

	cart, err := repo.GetOrCreateByUser(7)
	if err != nil || cart == nil {
		t.Fatalf("create cart failed: %v", err)
	}
	again, err := repo.GetOrCreateByUser(7)
	if err != nil || again == nil || again.ID != cart.ID {
		t.Fatalf("cart should be reused, err=%v", err)
	}

	if err := repo.AddQuantity(&models.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := repo.AddQuantity(&models.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 3}); err != nil {
		t.Fatalf("second add failed: %v", err)
	}

	items, err := repo.ListItems(cart.ID)
	if err != nil {
		t.Fatalf("list items failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("want 1 cart row got %d", len(items))
	}
	if items[0].Quantity != 5 {
		t.Fatalf("want quantity 5 got %d", items[0].Quantity)
	}
	if items[0].Product == nil || items[0].Product.ID != product.ID {
		t.Fatalf("expected product preload")
	}
}

func TestCartAddQuantityKeepsFirstAttribution(t *testing.T) {
	db := openRepositoryTestDB(t)
	product := createActiveProduct(t, NewProductRepository(db), "cart-attr", 10)
	repo := NewCartRepository(db)
	cart, err := repo.GetOrCreateByUser(9)
	if err != nil {
		t.Fatalf("create cart failed: %v", err)
	}

	firstAffiliate, secondAffiliate := uint(11), uint(22)
	at := time.Now().Add(-time.Hour)
	if err := repo.AddQuantity(&models.CartItem{
		CartID: cart.ID, ProductID: product.ID, Quantity: 1,
		AffiliateProfileID: &firstAffiliate, AttributedAt: &at,
	}); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	later := time.Now()
	if err := repo.AddQuantity(&models.CartItem{
		CartID: cart.ID, ProductID: product.ID, Quantity: 1,
		AffiliateProfileID: &secondAffiliate, AttributedAt: &later,
	}); err != nil {
		t.Fatalf("second add failed: %v", err)
	}

	item, err := repo.GetItem(cart.ID, product.ID)
	if err != nil || item == nil {
		t.Fatalf("get item failed: %v", err)
	}
	if item.AffiliateProfileID == nil || *item.AffiliateProfileID != firstAffiliate {
		t.Fatalf("attribution must stay with first affiliate, got %v", item.AffiliateProfileID)
	}
	if item.Quantity != 2 {
		t.Fatalf("want quantity 2 got %d", item.Quantity)
	}
}
