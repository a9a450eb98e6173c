package util

import (
	"reflect"
	"testing"
)

func TestExpandRange(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{
			name:  "single value",
			input: "5",
			want:  []int{5},
		},
		{
			name:  "simple range",
			input: "1-5",
			want:  []int{1, 2, 3, 4, 5},
		},
		{
			name:  "comma separated",
			input: "1,3,5",
			want:  []int{1, 3, 5},
		},
		{
			name:  "mixed",
			input: "1-3,5,7-9",
			want:  []int{1, 2, 3, 5, 7, 8, 9},
		},
		{
			name:  "trunk allowed vlans",
			input: "1,5,10-12",
			want:  []int{1, 5, 10, 11, 12},
		},
		{
			name:  "with spaces",
			input: "1 - 3, 5",
			want:  []int{1, 2, 3, 5},
		},
		{
			name:  "duplicates removed",
			input: "1-3,2-4",
			want:  []int{1, 2, 3, 4},
		},
		{
			name:  "empty string",
			input: "",
			want:  nil,
		},
		{
			name:    "invalid - start > end",
			input:   "5-1",
			wantErr: true,
		},
		{
			name:    "invalid - not a number",
			input:   "abc",
			wantErr: true,
		},
		{
			name:    "invalid - bad range format",
			input:   "1-2-3",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandRange(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ExpandRange(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpandRange(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompactRange(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   string
	}{
		{
			name:   "consecutive",
			values: []int{1, 2, 3, 4, 5},
			want:    "1-5",
		},
		{
			name:   "non-consecutive",
			values: []int{1, 3, 5},
			want:    "1,3,5",
		},
		{
			name:   "mixed",
			values: []int{1, 2, 3, 5, 7, 8, 9},
			want:    "1-3,5,7-9",
		},
		{
			name:   "single value",
			values: []int{5},
			want:    "5",
		},
		{
			name:   "empty",
			values: []int{},
			want:    "",
		},
		{
			name:   "unsorted with duplicates",
			values: []int{5, 3, 1, 2, 3, 4},
			want:    "1-5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompactRange(tt.values)
			if got != tt.want {
				t.Errorf("CompactRange(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}

func TestExpandVLANRange(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{
			name:  "valid range",
			input: "100-105,200",
			want:  []int{100, 101, 102, 103, 104, 105, 200},
		},
		{
			name:  "single vlan",
			input: "100",
			want:  []int{100},
		},
		{
			name:    "invalid - vlan 0",
			input:   "0",
			wantErr: true,
		},
		{
			name:    "invalid - vlan too high",
			input:   "4095",
			wantErr: true,
		},
		{
			name:    "invalid - includes bad vlan",
			input:   "100-4095",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandVLANRange(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ExpandVLANRange(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpandVLANRange(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	// Test that ExpandRange and CompactRange are inverses
	original := "1-3,5,7-10,15"
	expanded, err := ExpandRange(original)
	if err != nil {
		t.Fatalf("ExpandRange failed: %v", err)
	}
	compacted := CompactRange(expanded)
	if compacted != original {
		t.Errorf("Round trip failed: %q -> %v -> %q", original, expanded, compacted)
	}
}

func TestExpandRange_EmptyParts(t *testing.T) {
	// Test with empty parts after comma
	got, err := ExpandRange("1, , 3")
	if err != nil {
		t.Errorf("ExpandRange() unexpected error: %v", err)
	}
	want := []int{1, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandRange(\"1, , 3\") = %v, want %v", got, want)
	}
}

func TestExpandRange_InvalidEndValue(t *testing.T) {
	// Test with invalid end value in range
	_, err := ExpandRange("1-abc")
	if err == nil {
		t.Error("Expected error for invalid end value")
	}
}

func TestExpandVLANRange_InvalidRange(t *testing.T) {
	// Test ExpandVLANRange with invalid range format (not invalid VLAN ID)
	_, err := ExpandVLANRange("abc")
	if err == nil {
		t.Error("Expected error for invalid range format")
	}
}

func TestExpandRange_DuplicatesWithSort(t *testing.T) {
	// Specifically test dedup path in dedupInts
	// This should trigger the dedup loop
	got, err := ExpandRange("1,1,1,2,2,3")
	if err != nil {
		t.Errorf("ExpandRange() unexpected error: %v", err)
	}
	want := []int{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandRange(\"1,1,1,2,2,3\") = %v, want %v", got, want)
	}
}
