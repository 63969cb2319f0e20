package transport

import (
	"testing"

	"github.com/kinetoscope/streamer/sram"
)

func TestBankForAddressRoundTrip(t *testing.T) {
	cases := []struct {
		bank   sram.Bank
		offset int64
	}{
		{sram.Bank0, 0},
		{sram.Bank0, sram.BankSize - 1},
		{sram.Bank1, 0},
		{sram.Bank1, 1024},
	}
	for _, c := range cases {
		addr := AddressForBank(c.bank, c.offset)
		gotBank, gotOffset, ok := BankForAddress(addr)
		if !ok {
			t.Fatalf("BankForAddress(%#x): ok=false", addr)
		}
		if gotBank != c.bank || gotOffset != c.offset {
			t.Errorf("BankForAddress(%#x) = (%v, %d), want (%v, %d)", addr, gotBank, gotOffset, c.bank, c.offset)
		}
	}
}

func TestBankForAddressOutsideWindow(t *testing.T) {
	if _, _, ok := BankForAddress(SRAMWindowStart - 1); ok {
		t.Error("address just below the window should report ok=false")
	}
	if _, _, ok := BankForAddress(SRAMWindowEnd); ok {
		t.Error("address at the window end (exclusive) should report ok=false")
	}
}
