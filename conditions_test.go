package lockstep_test

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/tessara-io/lockstep"
	"github.com/tessara-io/lockstep/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAddressPrinting(t *testing.T) {
	Convey("test hexademical address printing", t, func() {
		b := []byte("ABCD123456LHB")
		addr := lockstep.Address(b)

		So(addr.String(), ShouldEqual, fmt.Sprintf("%X", b))
	})

	Convey("test hexademical condition printing", t, func() {
		cond := lockstep.NewCondition("four", "five", []byte("ABCD123456LHB"))

		So(cond.String(), ShouldNotEqual, fmt.Sprintf("%X", cond))
	})
}

func TestNewAddress(t *testing.T) {
	cond := lockstep.NewCondition("msig", "seq", []byte("some-payload"))

	addr := cond.Address()
	if len(addr) != lockstep.AddressLength {
		t.Fatalf("address must be %d bytes, got %d", lockstep.AddressLength, len(addr))
	}
	if !addr.Equals(lockstep.NewAddress(cond)) {
		t.Fatal("address derivation must be deterministic")
	}

	other := lockstep.NewCondition("msig", "seq", []byte("other-payload")).Address()
	if addr.Equals(other) {
		t.Fatal("different conditions must produce different addresses")
	}

	if lockstep.NewAddress(nil) != nil {
		t.Fatal("nil input must produce a nil address")
	}
}

func TestAddressUnmarshalJSON(t *testing.T) {
	// 20 characters, so that the hex decoded value passes the address
	// length validation.
	rawAddr := []byte("hex-addr-20-bytes-ok")

	cases := map[string]struct {
		json     string
		wantErr  *errors.Error
		wantAddr lockstep.Address
	}{
		"default decoding": {
			json:     `"6865782d616464722d32302d62797465732d6f6b"`,
			wantAddr: lockstep.Address(rawAddr),
		},
		"hex decoding": {
			json:     `"hex:6865782d616464722d32302d62797465732d6f6b"`,
			wantAddr: lockstep.Address(rawAddr),
		},
		"cond decoding": {
			json:     `"cond:foo/bar/636f6e646974696f6e64617461"`,
			wantAddr: lockstep.NewCondition("foo", "bar", []byte("conditiondata")).Address(),
		},
		"invalid address length": {
			json:    `"6865782d61646472"`,
			wantErr: errors.ErrInput,
		},
		"invalid condition format": {
			json:    `"cond:foo/636f6e646974696f6e64617461"`,
			wantErr: errors.ErrInput,
		},
		"invalid condition data": {
			json:    `"cond:foo/bar/zzzzz"`,
			wantErr: errors.ErrInput,
		},
		"unknown format": {
			json:    `"foobar:xxx"`,
			wantErr: errors.ErrType,
		},
		"zero address": {
			json:     `""`,
			wantAddr: nil,
		},
		"zero hex address": {
			json:     `"hex:"`,
			wantAddr: nil,
		},
		"zero cond address": {
			json:     `"cond:"`,
			wantAddr: nil,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var a lockstep.Address
			err := json.Unmarshal([]byte(tc.json), &a)
			if !tc.wantErr.Is(err) {
				t.Fatalf("got error: %+v", err)
			}
			if err == nil && !reflect.DeepEqual(a, tc.wantAddr) {
				t.Fatalf("got address: %q", a)
			}
		})
	}
}

func TestAddressMarshalJSONRoundTrip(t *testing.T) {
	addr := lockstep.NewCondition("msig", "seq", []byte("round-trip")).Address()

	raw, err := json.Marshal(addr)
	if err != nil {
		t.Fatalf("cannot marshal: %s", err)
	}
	var got lockstep.Address
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("cannot unmarshal %q: %s", raw, err)
	}
	if !got.Equals(addr) {
		t.Fatalf("want %q, got %q", addr, got)
	}
}

func TestConditionUnmarshalJSON(t *testing.T) {
	cases := map[string]struct {
		json          string
		wantErr       *errors.Error
		wantCondition lockstep.Condition
	}{
		"default decoding": {
			json:          `"foo/bar/636f6e646974696f6e64617461"`,
			wantCondition: lockstep.NewCondition("foo", "bar", []byte("conditiondata")),
		},
		"invalid condition format": {
			json:    `"foo/636f6e646974696f6e64617461"`,
			wantErr: errors.ErrInput,
		},
		"invalid condition data": {
			json:    `"foo/bar/zzzzz"`,
			wantErr: errors.ErrInput,
		},
		"zero condition": {
			json:          `""`,
			wantCondition: nil,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var got lockstep.Condition
			err := json.Unmarshal([]byte(tc.json), &got)
			if !tc.wantErr.Is(err) {
				t.Fatalf("got error: %+v", err)
			}
			if err == nil && !got.Equals(tc.wantCondition) {
				t.Fatalf("got condition: %q", got)
			}
		})
	}
}

func TestConditionParse(t *testing.T) {
	cond := lockstep.NewCondition("msig", "seq", []byte{0, 1, 0x20, 3})

	ext, typ, data, err := cond.Parse()
	if err != nil {
		t.Fatalf("cannot parse: %+v", err)
	}
	if ext != "msig" || typ != "seq" {
		t.Fatalf("unexpected sections: %q %q", ext, typ)
	}
	if !reflect.DeepEqual(data, []byte{0, 1, 0x20, 3}) {
		t.Fatalf("unexpected data: %v", data)
	}

	if err := lockstep.Condition("garbage").Validate(); !errors.ErrInput.Is(err) {
		t.Fatalf("want invalid input error, got %+v", err)
	}
}

func TestParseAddress(t *testing.T) {
	addr := lockstep.NewCondition("msig", "seq", []byte("parse-me")).Address()

	got, err := lockstep.ParseAddress(addr.String())
	if err != nil {
		t.Fatalf("cannot parse: %+v", err)
	}
	if !got.Equals(addr) {
		t.Fatalf("want %q, got %q", addr, got)
	}

	if _, err := lockstep.ParseAddress("zzzz"); !errors.ErrInput.Is(err) {
		t.Fatalf("want invalid input error, got %+v", err)
	}
	if _, err := lockstep.ParseAddress("abcd"); !errors.ErrInput.Is(err) {
		t.Fatalf("want invalid length error, got %+v", err)
	}
}

func TestAddressClone(t *testing.T) {
	addr := lockstep.NewCondition("msig", "seq", []byte("clone-me")).Address()
	cpy := addr.Clone()
	if !cpy.Equals(addr) {
		t.Fatal("clone must be equal to the original")
	}
	cpy[0] ^= 0xff
	if cpy.Equals(addr) {
		t.Fatal("clone must not share memory with the original")
	}
}
