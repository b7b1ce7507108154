package sheets

import "testing"

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}

	for _, tt := range tests {
		if got := ColumnLetter(tt.index); got != tt.want {
			t.Errorf("ColumnLetter(%d) = %s, want %s", tt.index, got, tt.want)
		}
	}
}

func TestHeaderIndex(t *testing.T) {
	headers := []string{"Job ID", "Title", " Video URL ", "Posted"}

	tests := []struct {
		column string
		want   int
	}{
		{"Job ID", 0},
		{"job id", 0},
		{"Video URL", 2},
		{"POSTED", 3},
		{"Missing", -1},
	}

	for _, tt := range tests {
		if got := headerIndex(headers, tt.column); got != tt.want {
			t.Errorf("headerIndex(%q) = %d, want %d", tt.column, got, tt.want)
		}
	}
}
