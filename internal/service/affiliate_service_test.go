package service

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
	"github.com/Bmariten/afripulse-v2-sub001/internal/models"
)

func TestResolveAttributionPrefersLinkCode(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	customer := f.createUser(t, "buyer@example.com", constants.RoleCustomer)
	profile := f.createAffiliate(t, "aff@example.com", "AFFLINK1", "10")
	product := f.createProduct(t, seller.ID, "linked", "10.00", 5)
	other := f.createProduct(t, seller.ID, "other", "10.00", 5)

	productID := product.ID
	link, err := f.affiliate.CreateLink(profile.UserID, &productID)
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	attribution, err := f.affiliate.ResolveAttribution(customer.ID, product.ID, link.Code)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if attribution == nil || attribution.AffiliateProfileID != profile.ID {
		t.Fatalf("expected attribution to profile %d, got %+v", profile.ID, attribution)
	}
	if attribution.AffiliateLinkID == nil || *attribution.AffiliateLinkID != link.ID {
		t.Fatalf("expected link %d, got %+v", link.ID, attribution.AffiliateLinkID)
	}

	mismatch, err := f.affiliate.ResolveAttribution(customer.ID, other.ID, link.Code)
	if err != nil {
		t.Fatalf("resolve mismatch failed: %v", err)
	}
	if mismatch != nil {
		t.Fatalf("product link must not attribute another product: %+v", mismatch)
	}

	byCode, err := f.affiliate.ResolveAttribution(customer.ID, other.ID, profile.AffiliateCode)
	if err != nil {
		t.Fatalf("resolve by code failed: %v", err)
	}
	if byCode == nil || byCode.AffiliateLinkID != nil {
		t.Fatalf("expected code attribution without link, got %+v", byCode)
	}
}

func TestResolveAttributionSkipsInactiveProfile(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	customer := f.createUser(t, "buyer@example.com", constants.RoleCustomer)
	profile := f.createAffiliate(t, "aff@example.com", "AFFOFF01", "10")
	if err := f.affiliate.SetStatus(profile.ID, constants.AffiliateStatusDisabled); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	attribution, err := f.affiliate.ResolveAttribution(customer.ID, 1, profile.AffiliateCode)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if attribution != nil {
		t.Fatalf("disabled affiliate must not attribute: %+v", attribution)
	}
	if err := f.affiliate.SetStatus(profile.ID, "paused"); !errors.Is(err, ErrAffiliateStatus) {
		t.Fatalf("expected ErrAffiliateStatus, got %v", err)
	}
}

func TestValidateAttributionWindow(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	profile := f.createAffiliate(t, "aff@example.com", "AFFWIN01", "10")
	now := time.Now()
	profileID := profile.ID

	fresh := now.Add(-29 * 24 * time.Hour)
	got, err := f.affiliate.ValidateAttribution(f.db, models.CartItem{AffiliateProfileID: &profileID, AttributedAt: &fresh}, 0, now)
	if err != nil || got == nil || got.ID != profile.ID {
		t.Fatalf("fresh attribution should validate, got %+v err=%v", got, err)
	}

	stale := now.Add(-31 * 24 * time.Hour)
	got, err = f.affiliate.ValidateAttribution(f.db, models.CartItem{AffiliateProfileID: &profileID, AttributedAt: &stale}, 0, now)
	if err != nil || got != nil {
		t.Fatalf("stale attribution should be dropped, got %+v err=%v", got, err)
	}

	got, err = f.affiliate.ValidateAttribution(f.db, models.CartItem{AffiliateProfileID: &profileID, AttributedAt: &fresh}, profile.UserID, now)
	if err != nil || got != nil {
		t.Fatalf("self referral should be dropped, got %+v err=%v", got, err)
	}
}

func TestComputeCommissionRounding(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	cases := []struct {
		rate     string
		subtotal string
		want     string
	}{
		{"10", "20.00", "2.00"},
		{"12.5", "9.99", "1.25"},
		{"7", "0.05", "0.00"},
		{"0", "100.00", "0.00"},
		{"33.33", "3.00", "1.00"},
	}
	for _, tc := range cases {
		profile := &models.AffiliateProfile{CommissionRate: models.MustMoney(tc.rate)}
		got := f.affiliate.ComputeCommission(profile, models.MustMoney(tc.subtotal))
		if got.String() != tc.want {
			t.Fatalf("rate %s on %s: want %s got %s", tc.rate, tc.subtotal, tc.want, got.String())
		}
	}
	if got := f.affiliate.ComputeCommission(nil, models.MustMoney("10")); !got.IsZero() {
		t.Fatalf("nil profile should yield zero commission, got %s", got.String())
	}
}

func TestCreateLinkIsIdempotent(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	profile := f.createAffiliate(t, "aff@example.com", "AFFIDEM1", "10")
	product := f.createProduct(t, seller.ID, "idem", "10.00", 5)
	productID := product.ID

	first, err := f.affiliate.CreateLink(profile.UserID, &productID)
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	second, err := f.affiliate.CreateLink(profile.UserID, &productID)
	if err != nil {
		t.Fatalf("create link again failed: %v", err)
	}
	if first.ID != second.ID || first.Code != second.Code {
		t.Fatalf("expected same link, got %+v and %+v", first, second)
	}
	general, err := f.affiliate.CreateLink(profile.UserID, nil)
	if err != nil {
		t.Fatalf("create general link failed: %v", err)
	}
	if general.ID == first.ID {
		t.Fatal("general link must differ from product link")
	}
	missing := uint(999)
	if _, err := f.affiliate.CreateLink(profile.UserID, &missing); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	links, err := f.affiliate.ListLinks(profile.UserID)
	if err != nil {
		t.Fatalf("list links failed: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if _, err := f.affiliate.CreateLink(seller.ID, nil); !errors.Is(err, ErrAffiliateNotFound) {
		t.Fatalf("non affiliate should not create links, got %v", err)
	}
}

func TestTrackClickDedupesVisitor(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	profile := f.createAffiliate(t, "aff@example.com", "AFFCLIK1", "10")
	link, err := f.affiliate.CreateLink(profile.UserID, nil)
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	ctx := context.Background()

	first, err := f.affiliate.TrackClick(ctx, TrackClickInput{Code: link.Code, VisitorKey: "visitor-1", ClientIP: "10.0.0.1"})
	if err != nil || !first.Counted {
		t.Fatalf("first click should count, got %+v err=%v", first, err)
	}
	repeat, err := f.affiliate.TrackClick(ctx, TrackClickInput{Code: link.Code, VisitorKey: "visitor-1", ClientIP: "10.0.0.1"})
	if err != nil || repeat.Counted {
		t.Fatalf("repeat click should be deduped, got %+v err=%v", repeat, err)
	}
	other, err := f.affiliate.TrackClick(ctx, TrackClickInput{Code: link.Code, ClientIP: "10.0.0.2"})
	if err != nil || !other.Counted {
		t.Fatalf("other visitor should count, got %+v err=%v", other, err)
	}
	if _, err := f.affiliate.TrackClick(ctx, TrackClickInput{Code: "missing"}); !errors.Is(err, ErrAffiliateLinkNotFound) {
		t.Fatalf("expected ErrAffiliateLinkNotFound, got %v", err)
	}

	links, err := f.affiliate.ListLinks(profile.UserID)
	if err != nil {
		t.Fatalf("list links failed: %v", err)
	}
	if links[0].Clicks != 2 {
		t.Fatalf("expected 2 counted clicks, got %d", links[0].Clicks)
	}
}

func TestPaidOrderRecordsLinkConversion(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	seller := f.createUser(t, "seller@example.com", constants.RoleSeller)
	customer := f.createUser(t, "buyer@example.com", constants.RoleCustomer)
	profile := f.createAffiliate(t, "aff@example.com", "AFFCONV1", "10")
	product := f.createProduct(t, seller.ID, "convert", "15.00", 5)
	productID := product.ID
	link, err := f.affiliate.CreateLink(profile.UserID, &productID)
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	f.addToCart(t, customer.ID, product.ID, 2, link.Code)
	order, err := f.checkout.Checkout(context.Background(), checkoutInput(customer.ID, "cash"))
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if order.Items[0].AffiliateLinkID == nil || *order.Items[0].AffiliateLinkID != link.ID {
		t.Fatalf("expected order item to carry link %d", link.ID)
	}

	links, err := f.affiliate.ListLinks(profile.UserID)
	if err != nil {
		t.Fatalf("list links failed: %v", err)
	}
	if links[0].Conversions != 1 || links[0].Earnings.String() != "3.00" {
		t.Fatalf("unexpected link stats: conversions=%d earnings=%s", links[0].Conversions, links[0].Earnings.String())
	}

	rows, total, err := f.affiliate.ListCommissions(profile.UserID, constants.AffiliateCommissionStatusPendingConfirm, 1, 20)
	if err != nil {
		t.Fatalf("list commissions failed: %v", err)
	}
	if total != 1 || rows[0].CommissionAmount.String() != "3.00" || rows[0].RatePercent.String() != "10.00" {
		t.Fatalf("unexpected commissions: total=%d rows=%+v", total, rows)
	}
}

func TestSetCommissionRateBounds(t *testing.T) {
	f := setupMarketplaceFixture(t, nil)
	profile := f.createAffiliate(t, "aff@example.com", "AFFRATE1", "10")
	for _, rate := range []string{"-1", "100.01"} {
		if err := f.affiliate.SetCommissionRate(profile.ID, models.MustMoney(rate)); !errors.Is(err, ErrInvalidCommissionRate) {
			t.Fatalf("rate %s: expected ErrInvalidCommissionRate, got %v", rate, err)
		}
	}
	if err := f.affiliate.SetCommissionRate(999, models.MustMoney("5")); !errors.Is(err, ErrAffiliateNotFound) {
		t.Fatalf("expected ErrAffiliateNotFound, got %v", err)
	}
	if err := f.affiliate.SetCommissionRate(profile.ID, models.MustMoney("15")); err != nil {
		t.Fatalf("set rate failed: %v", err)
	}
	updated, err := f.affiliate.GetProfileByUser(profile.UserID)
	if err != nil {
		t.Fatalf("get profile failed: %v", err)
	}
	if updated.CommissionRate.String() != "15.00" {
		t.Fatalf("expected rate 15.00, got %s", updated.CommissionRate.String())
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	cases := []struct {
		value string
		limit int
		want  string
	}{
		{value: "  plain  ", limit: 10, want: "plain"},
		{value: "abcdef", limit: 4, want: "abcd"},
		{value: "Nairobi", limit: 0, want: "Nairobi"},
		// "é" 占 2 字节，上限落在字符中间时回退
		{value: "caféx", limit: 4, want: "caf"},
		{value: "caféx", limit: 5, want: "café"},
		{value: "手机浏览器", limit: 7, want: "手机"},
		{value: "🛒cart", limit: 2, want: ""},
	}
	for _, tc := range cases {
		got := truncate(tc.value, tc.limit)
		if got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.value, tc.limit, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("truncate(%q, %d) produced invalid utf-8", tc.value, tc.limit)
		}
	}
}
