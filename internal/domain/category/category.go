package category

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

var ErrNotFound = errors.New("job category not found")

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Seed is a static reference entry inserted on first boot.
type Seed struct {
	Name        string
	Description string
}

var Defaults = []Seed{
	{Name: "Kasir", Description: "Bertugas melayani pembayaran pelanggan dan mengelola kasir toko"},
	{Name: "Pramuniaga", Description: "Melayani pelanggan, menata barang, dan menjaga kebersihan toko"},
	{Name: "Supervisor Toko", Description: "Mengawasi operasional toko dan mengelola karyawan"},
	{Name: "Admin Gudang", Description: "Mengelola stok barang dan administrasi gudang"},
	{Name: "Driver/Pengantar", Description: "Mengantar barang pesanan pelanggan"},
	{Name: "Cleaning Service", Description: "Menjaga kebersihan dan kerapihan toko"},
	{Name: "Security", Description: "Menjaga keamanan toko dan barang dagangan"},
}

// Slugify lowercases and joins alphanumeric runs with single dashes,
// so "Driver/Pengantar" becomes "driver-pengantar".
func Slugify(name string) string {
	var b strings.Builder
	dash := false

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
