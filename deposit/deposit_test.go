package deposit

import (
	"strings"
	"testing"
)

func TestNewOrderID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		oid := NewOrderID()
		if !strings.HasPrefix(oid, OrderIDPrefix) {
			t.Fatalf("order id %q missing prefix %q", oid, OrderIDPrefix)
		}
		if oid != strings.ToUpper(oid) {
			t.Fatalf("order id %q is not uppercase", oid)
		}
		if seen[oid] {
			t.Fatalf("duplicate order id %q", oid)
		}
		seen[oid] = true

		got, ok := ExtractOrderID("CK GD "+oid+" thanh toan", "")
		if !ok || got != oid {
			t.Fatalf("generated order id %q does not round-trip through ExtractOrderID: got %q ok=%v", oid, got, ok)
		}
	}
}

func TestExtractOrderID(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
		want    string
		ok      bool
	}{
		{"plain", "NAPM3K9ZXAB12", "", "NAPM3K9ZXAB12", true},
		{"embedded in bank noise", "MBVCB.123456.NAPM3K9ZXAB12.CT tu 0123", "", "NAPM3K9ZXAB12", true},
		{"lowercase content", "chuyen khoan napm3k9zxab12", "", "NAPM3K9ZXAB12", true},
		{"mixed case", "NapM3k9zxAB12", "", "NAPM3K9ZXAB12", true},
		{"falls back to code", "thanh toan don hang", "NAPM3K9ZXAB12", "NAPM3K9ZXAB12", true},
		{"content wins over code", "NAPAAAA1111", "NAPBBBB2222", "NAPAAAA1111", true},
		{"no reference anywhere", "chuyen tien an trua", "FT123456", "", false},
		{"both empty", "", "", "", false},
		{"prefix alone still matches following digits", "NAP123", "", "NAP123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractOrderID(tt.content, tt.code)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ExtractOrderID(%q, %q) = %q, %v; want %q, %v",
					tt.content, tt.code, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNotificationOrderID(t *testing.T) {
	n := &Notification{
		TransferType:   TransferIn,
		TransferAmount: 100000,
		Content:        "CK NAPM3K9ZXAB12",
	}

	oid, ok := n.OrderID()
	if !ok || oid != "NAPM3K9ZXAB12" {
		t.Errorf("OrderID() = %q, %v; want NAPM3K9ZXAB12, true", oid, ok)
	}
	if !n.IsIncoming() {
		t.Error("expected incoming transfer")
	}

	out := &Notification{TransferType: TransferOut}
	if out.IsIncoming() {
		t.Error("outgoing transfer reported as incoming")
	}
}

func TestQRURL(t *testing.T) {
	got := QRURL("MBBank", "0123456789", "compact", "PHAM HONG PHUC", 100000, "NAPM3K9ZXAB12")

	for _, part := range []string{
		"https://qr.sepay.vn/img?",
		"bank=MBBank",
		"acc=0123456789",
		"template=compact",
		"amount=100000",
		"des=NAPM3K9ZXAB12",
		"accountName=PHAM+HONG+PHUC",
	} {
		if !strings.Contains(got, part) {
			t.Errorf("QR URL %q missing %q", got, part)
		}
	}
}

func TestQRURLOmitsEmptyOptionalParams(t *testing.T) {
	got := QRURL("MBBank", "0123456789", "", "", 50000, "NAPAAAA1111")
	if strings.Contains(got, "template=") {
		t.Errorf("QR URL %q should omit empty template", got)
	}
	if strings.Contains(got, "accountName=") {
		t.Errorf("QR URL %q should omit empty accountName", got)
	}
}
