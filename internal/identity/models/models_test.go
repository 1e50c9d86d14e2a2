package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupChain(t *testing.T) {
	tests := []struct {
		name string
		path string
		want []string
	}{
		{name: "root has no chain", path: "/", want: nil},
		{name: "empty has no chain", path: "", want: nil},
		{name: "single level", path: "/staff", want: []string{"/staff"}},
		{name: "nested parents first", path: "/a/b/c", want: []string{"/a", "/a/b", "/a/b/c"}},
		{name: "trailing slash ignored", path: "/a/b/", want: []string{"/a", "/a/b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GroupChain(tt.path))
		})
	}
}

func TestEntityClone(t *testing.T) {
	original := &Entity{
		Identities:       []IdentityParam{{TypeID: IdentityTypeUsername, Value: "alice"}},
		Attributes:       []Attribute{{Name: "cn", GroupPath: RootGroup, Values: []string{"Alice"}}},
		AttributeClasses: map[string][]string{"/": {"person"}},
		Credentials:      map[string]Credential{"otp": {CredentialID: "otp"}},
	}

	clone := original.Clone()
	clone.Attributes[0].Values[0] = "Mallory"
	clone.AttributeClasses["/"][0] = "robot"
	clone.Identities[0].Value = "mallory"

	assert.Equal(t, "Alice", original.Attributes[0].Values[0])
	assert.Equal(t, "person", original.AttributeClasses["/"][0])
	assert.Equal(t, []string{"alice"}, original.IdentityValues(IdentityTypeUsername))
}
