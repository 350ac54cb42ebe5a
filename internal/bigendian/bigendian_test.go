// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package bigendian

import "testing"

func TestU2(t *testing.T) {
	b := []byte{0xCA, 0xFE, 0xBA, 0xBE}
	if got := U2(b, 0); got != 0xCAFE {
		t.Fatalf("U2(0) = %#x, want 0xCAFE", got)
	}
	if got := U2(b, 2); got != 0xBABE {
		t.Fatalf("U2(2) = %#x, want 0xBABE", got)
	}
}

func TestU4(t *testing.T) {
	b := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x00, 0x00, 0x07}
	if got := U4(b, 0); got != 0xCAFEBABE {
		t.Fatalf("U4(0) = %#x, want 0xCAFEBABE", got)
	}
	if got := U4(b, 4); got != 7 {
		t.Fatalf("U4(4) = %d, want 7", got)
	}
}

func TestOutOfBoundsReturnsZero(t *testing.T) {
	b := []byte{0x01, 0x02}
	if got := U1(b, 5); got != 0 {
		t.Fatalf("U1 out of bounds = %d, want 0", got)
	}
	if got := U2(b, 1); got != 0 {
		t.Fatalf("U2 out of bounds = %d, want 0", got)
	}
	if got := U4(b, -1); got != 0 {
		t.Fatalf("U4 negative offset = %d, want 0", got)
	}
}

func TestFits(t *testing.T) {
	b := make([]byte, 10)
	if !Fits(b, 8, 2) {
		t.Fatal("expected Fits(8,2) true")
	}
	if Fits(b, 8, 3) {
		t.Fatal("expected Fits(8,3) false")
	}
	if Fits(b, -1, 1) {
		t.Fatal("expected negative offset false")
	}
}
