package jiscode

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		value string
		width int
		want  int
	}{
		{name: "prefecture", value: "11", width: PrefectureWidth, want: 11},
		{name: "leading zero prefecture", value: "01", width: PrefectureWidth, want: 1},
		{name: "city", value: "101", width: CityWidth, want: 101},
		{name: "city with zeros", value: "001", width: CityWidth, want: 1},
		{name: "sub-area", value: "001000", width: SubAreaWidth, want: 1000},
		{name: "all zeros", value: "000000", width: SubAreaWidth, want: 0},
		{name: "surrounding spaces", value: "  003001 ", width: SubAreaWidth, want: 3001},
		{name: "tabs and newline", value: "\t13\n", width: PrefectureWidth, want: 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.value, tt.width)
			if err != nil {
				t.Fatalf("Parse(%q, %d) error = %v", tt.value, tt.width, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q, %d) = %d, want %d", tt.value, tt.width, got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
		width int
	}{
		{name: "empty", value: "", width: PrefectureWidth},
		{name: "only spaces", value: "   ", width: PrefectureWidth},
		{name: "too short", value: "1", width: PrefectureWidth},
		{name: "too long", value: "0011", width: CityWidth},
		{name: "sign", value: "-1", width: PrefectureWidth},
		{name: "plus sign", value: "+12", width: CityWidth},
		{name: "decimal", value: "1.5", width: CityWidth},
		{name: "embedded separator", value: "001,00", width: SubAreaWidth},
		{name: "embedded space", value: "001 00", width: SubAreaWidth},
		{name: "letters", value: "ab", width: PrefectureWidth},
		{name: "full-width digits", value: "１１", width: PrefectureWidth},
		{name: "zero width", value: "", width: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.value, tt.width)
			if err == nil {
				t.Fatalf("Parse(%q, %d) expected error", tt.value, tt.width)
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if verr.Value != tt.value {
				t.Errorf("ValidationError.Value = %q, want %q", verr.Value, tt.value)
			}
			if verr.Width != tt.width {
				t.Errorf("ValidationError.Width = %d, want %d", verr.Width, tt.width)
			}
		})
	}
}

func TestCompose(t *testing.T) {
	tests := []struct {
		pref, city, leaf int
		want             int64
	}{
		{11, 101, 1000, 11101001000},
		{1, 100, 0, 1100000000},
		{47, 999, 999999, 47999999999},
	}

	for _, tt := range tests {
		if got := Compose(tt.pref, tt.city, tt.leaf); got != tt.want {
			t.Errorf("Compose(%d, %d, %d) = %d, want %d", tt.pref, tt.city, tt.leaf, got, tt.want)
		}
	}
}

func TestBucketAndSectionDigits(t *testing.T) {
	if got := Bucket(3001); got != 30 {
		t.Errorf("Bucket(3001) = %d, want 30", got)
	}
	if got := SectionDigits(3001); got != 1 {
		t.Errorf("SectionDigits(3001) = %d, want 1", got)
	}
	if got := SectionDigits(1000); got != 0 {
		t.Errorf("SectionDigits(1000) = %d, want 0", got)
	}
}
