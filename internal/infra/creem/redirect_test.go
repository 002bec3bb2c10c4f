package creem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignRedirect_SkipsAbsentParams(t *testing.T) {
	p := RedirectParams{CheckoutID: "ch_1", OrderID: "ord_1", CustomerID: "cust_1", ProductID: "prod_A"}
	sum := sha256.Sum256([]byte("checkout_id=ch_1|order_id=ord_1|customer_id=cust_1|product_id=prod_A|salt=key"))

	assert.Equal(t, hex.EncodeToString(sum[:]), SignRedirect(p, "key"))
}

func TestVerifyRedirect(t *testing.T) {
	q := url.Values{}
	q.Set("request_id", "1-1700000000000")
	q.Set("checkout_id", "ch_1")
	q.Set("order_id", "ord_1")
	q.Set("customer_id", "cust_1")
	q.Set("subscription_id", "sub_1")
	q.Set("product_id", "prod_A")

	p := RedirectParamsFromQuery(q)
	p.Signature = SignRedirect(p, "creem_test_key")
	assert.NoError(t, VerifyRedirect(p, "creem_test_key"))

	tampered := p
	tampered.SubscriptionID = "sub_2"
	assert.ErrorIs(t, VerifyRedirect(tampered, "creem_test_key"), ErrInvalidSignature)

	p.Signature = ""
	assert.ErrorIs(t, VerifyRedirect(p, "creem_test_key"), ErrMissingSignature)
}

func TestRedirectVerifier(t *testing.T) {
	v := RedirectVerifier{APIKey: "creem_test_key"}
	p := RedirectParams{CustomerID: "cust_1", SubscriptionID: "sub_1", ProductID: "prod_A"}

	_, err := v.VerifyRedirect(context.Background(), 1, p)
	assert.ErrorIs(t, err, ErrMissingSignature)

	p.Signature = SignRedirect(p, "creem_test_key")
	ids, err := v.VerifyRedirect(context.Background(), 1, p)
	require.NoError(t, err)
	assert.Equal(t, "sub_1", ids.SubscriptionID)
	assert.Equal(t, "cust_1", ids.CustomerID)
	assert.Equal(t, "prod_A", ids.ProductID)
}
