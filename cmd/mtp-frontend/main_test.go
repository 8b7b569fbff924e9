package main

import (
	"reflect"
	"testing"
)

func TestMissingLanguages(t *testing.T) {
	tests := []struct {
		configured, available, want []string
	}{
		{[]string{"en", "fr"}, []string{"en", "fr"}, nil},
		{[]string{"en", "de", "fr"}, []string{"en"}, []string{"de", "fr"}},
		{[]string{"en"}, nil, []string{"en"}},
	}
	for _, tt := range tests {
		if got := missingLanguages(tt.configured, tt.available); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("missingLanguages(%v, %v) = %v, want %v", tt.configured, tt.available, got, tt.want)
		}
	}
}
