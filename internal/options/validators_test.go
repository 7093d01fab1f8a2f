// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Gibson

package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHex(t *testing.T) {
	for _, s := range []string{"0x0", "0xdeadbeef", "0XDEADBEEF", "0xAbC1"} {
		assert.True(t, IsHex(s), s)
	}
	for _, s := range []string{"", "0x", "deadbeef", "0xg1", "x10", " 0x10", "0x10 "} {
		assert.False(t, IsHex(s), s)
	}
}

func TestValidatorsLeaveStoreOnReject(t *testing.T) {
	reg := DefaultRegistry()
	for _, name := range reg.Names() {
		t.Run(name, func(t *testing.T) {
			o := New()
			validate, ok := reg.Lookup(name)
			assert.True(t, ok)

			result := validate(o, "definitely not valid")
			assert.Equal(t, Result{}, result)
			assert.Empty(t, o.Snapshot())
		})
	}
}

func TestValidatorBroadcastTable(t *testing.T) {
	valid := map[string]string{
		OptAll:       "on",
		OptInstCount: "3",
		OptBadbytes:  "00",
		OptDetailed:  "off",
		OptType:      "rop",
		OptColor:     "off",
	}
	broadcast := map[string]bool{
		OptAll:       true,
		OptInstCount: true,
		OptBadbytes:  true,
		OptDetailed:  false,
		OptType:      true,
		OptColor:     false,
	}

	reg := DefaultRegistry()
	assert.Len(t, reg, len(valid))
	for name, raw := range valid {
		validate, ok := reg.Lookup(name)
		if !assert.True(t, ok, name) {
			continue
		}
		result := validate(New(), raw)
		assert.True(t, result.Accepted, name)
		assert.Equal(t, broadcast[name], result.Broadcast, name)
	}
}
