package receipt

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

// OpenPath is the HTTP path that serves a signed receipt link.
const OpenPath = "/api/receipts/open"

// Link is a signed, expiring download URL.
type Link struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issuer renders, stores and links receipt documents.
type Issuer struct {
	store   *FileStore
	signer  *Signer
	baseURL string
}

// NewIssuer wires a store and signer. baseURL prefixes generated links.
func NewIssuer(store *FileStore, signer *Signer, baseURL string) *Issuer {
	return &Issuer{store: store, signer: signer, baseURL: strings.TrimRight(baseURL, "/")}
}

// Issue renders d and stores it. It returns the object key.
func (i *Issuer) Issue(d Document, at time.Time) (string, error) {
	data, err := Render(d)
	if err != nil {
		return "", err
	}
	key := Key(d.ReceiptID, at)
	if err := i.store.Put(key, data); err != nil {
		return "", err
	}
	return key, nil
}

// Discard removes a stored document that was never recorded.
func (i *Issuer) Discard(key string) error {
	return i.store.Delete(key)
}

// VerifyURL is the permanent verification address printed on a receipt.
func (i *Issuer) VerifyURL(receiptID string) string {
	return i.baseURL + "/api/receipts/" + url.PathEscape(receiptID)
}

// Link signs a download URL for receiptID owned by userID.
func (i *Issuer) Link(receiptID string, userID int64, now time.Time) (Link, error) {
	token, exp, err := i.signer.Sign(receiptID, userID, now)
	if err != nil {
		return Link{}, fmt.Errorf("sign receipt link: %w", err)
	}
	return Link{
		URL:       i.baseURL + OpenPath + "?token=" + url.QueryEscape(token),
		ExpiresAt: exp,
	}, nil
}

// Resolve checks a link token and returns the receipt id and owner it grants.
func (i *Issuer) Resolve(token string, now time.Time) (string, int64, error) {
	return i.signer.Verify(token, now)
}

// Open reads the stored document under key.
func (i *Issuer) Open(key string) (io.ReadCloser, error) {
	return i.store.Open(key)
}
