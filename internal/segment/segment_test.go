package segment

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSegment_SharedPrefix(t *testing.T) {
	leaves := []Leaf{
		{Prefecture: 11, City: 101, Code: 1001, Name: "中央1丁目"},
		{Prefecture: 11, City: 101, Code: 1002, Name: "中央2丁目"},
		{Prefecture: 11, City: 101, Code: 1003, Name: "中央3丁目"},
	}

	got := Segment(leaves)
	want := []Split{
		{Area: "中央", Section: "1丁目"},
		{Area: "中央", Section: "2丁目"},
		{Area: "中央", Section: "3丁目"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Segment() mismatch (-want +got):\n%s", diff)
	}
}

func TestSegment_SingleLeafWithoutChome(t *testing.T) {
	got := Segment([]Leaf{{Prefecture: 11, City: 101, Code: 3001, Name: "大字指扇"}})
	want := []Split{{Area: "大字指扇"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Segment() mismatch (-want +got):\n%s", diff)
	}
	if got[0].HasSection() {
		t.Error("HasSection() = true, want false")
	}
}

func TestSegment_ZeroSectionDigitsNeverHaveSection(t *testing.T) {
	leaves := []Leaf{
		{Prefecture: 11, City: 101, Code: 1000, Name: "宮前町"},
		{Prefecture: 11, City: 101, Code: 1001, Name: "宮前町一丁目"},
		{Prefecture: 11, City: 101, Code: 2000, Name: "日進町二丁目"},
		{Prefecture: 11, City: 101, Code: 3000, Name: "本郷"},
		{Prefecture: 11, City: 101, Code: 3100, Name: "三橋五丁目"},
		{Prefecture: 11, City: 101, Code: 3101, Name: "内野本郷"},
	}

	got := Segment(leaves)
	want := []Split{
		{Area: "宮前町"},
		{Area: "宮前町", Section: "一丁目"},
		{Area: "日進町二丁目"},
		{Area: "本郷"},
		{Area: "三橋五丁目"},
		{Area: "内野本郷"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Segment() mismatch (-want +got):\n%s", diff)
	}
}

func TestSegment_ChomeFallback(t *testing.T) {
	leaves := []Leaf{
		{Prefecture: 13, City: 101, Code: 5001, Name: "丸の内一丁目"},
		{Prefecture: 13, City: 101, Code: 5002, Name: "有楽町十二丁目"},
		{Prefecture: 13, City: 101, Code: 5003, Name: "銀座"},
	}

	got := Segment(leaves)
	want := []Split{
		{Area: "丸の内", Section: "一丁目"},
		{Area: "有楽町", Section: "十二丁目"},
		{Area: "銀座"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Segment() mismatch (-want +got):\n%s", diff)
	}
}

func TestSegment_GroupsAreIsolatedByCityAndBucket(t *testing.T) {
	leaves := []Leaf{
		{Prefecture: 11, City: 101, Code: 1001, Name: "中央1丁目"},
		{Prefecture: 11, City: 102, Code: 1002, Name: "中央2丁目"},
		{Prefecture: 11, City: 101, Code: 1101, Name: "中央3丁目"},
	}

	got := Segment(leaves)
	want := []Split{
		{Area: "中央1丁目"},
		{Area: "中央2丁目"},
		{Area: "中央3丁目"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Segment() mismatch (-want +got):\n%s", diff)
	}
}

func TestSegment_EmptyRemainderHasNoSection(t *testing.T) {
	leaves := []Leaf{
		{Prefecture: 11, City: 101, Code: 4001, Name: "桜木町"},
		{Prefecture: 11, City: 101, Code: 4002, Name: "桜木町 二丁目"},
	}

	got := Segment(leaves)
	want := []Split{
		{Area: "桜木町"},
		{Area: "桜木町", Section: "二丁目"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Segment() mismatch (-want +got):\n%s", diff)
	}
}

func TestSegment_PrefixTrailingSpaceTrimmed(t *testing.T) {
	leaves := []Leaf{
		{Prefecture: 11, City: 101, Code: 6001, Name: "大字 上"},
		{Prefecture: 11, City: 101, Code: 6002, Name: "大字 下"},
	}

	got := Segment(leaves)
	want := []Split{
		{Area: "大字", Section: "上"},
		{Area: "大字", Section: "下"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Segment() mismatch (-want +got):\n%s", diff)
	}
}

func TestSegment_Empty(t *testing.T) {
	if got := Segment(nil); len(got) != 0 {
		t.Errorf("Segment(nil) = %v, want empty", got)
	}
}

func TestLongestCommonPrefix(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  string
	}{
		{name: "none", names: nil, want: ""},
		{name: "single", names: []string{"中央"}, want: "中央"},
		{name: "shared", names: []string{"中央1", "中央2"}, want: "中央"},
		{name: "shorter member bounds prefix", names: []string{"中央一丁目", "中"}, want: "中"},
		{name: "stops at first difference", names: []string{"abcX", "abcY", "abZ"}, want: "ab"},
		{name: "case sensitive", names: []string{"Abc", "abc"}, want: ""},
		{name: "nothing shared", names: []string{"東", "西"}, want: ""},
		{name: "identical", names: []string{"本町", "本町"}, want: "本町"},
		{name: "multi-byte runes sharing lead bytes", names: []string{"一", "丁"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LongestCommonPrefix(tt.names); got != tt.want {
				t.Errorf("LongestCommonPrefix(%q) = %q, want %q", tt.names, got, tt.want)
			}
		})
	}
}

func TestSplitChome(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantArea    string
		wantSection string
		wantOK      bool
	}{
		{name: "single numeral", in: "丸の内一丁目", wantArea: "丸の内", wantSection: "一丁目", wantOK: true},
		{name: "compound numeral", in: "本町二十三丁目", wantArea: "本町", wantSection: "二十三丁目", wantOK: true},
		{name: "hundred", in: "北百丁目", wantArea: "北", wantSection: "百丁目", wantOK: true},
		{name: "arabic digit is not a numeral glyph", in: "本町1丁目", wantArea: "本町1丁目"},
		{name: "marker without numeral", in: "本町丁目", wantArea: "本町丁目"},
		{name: "no marker", in: "大字指扇", wantArea: "大字指扇"},
		{name: "marker not at end", in: "一丁目北", wantArea: "一丁目北"},
		{name: "whole name is token", in: "三丁目", wantArea: "", wantSection: "三丁目", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			area, section, ok := SplitChome(tt.in)
			if area != tt.wantArea || section != tt.wantSection || ok != tt.wantOK {
				t.Errorf("SplitChome(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.in, area, section, ok, tt.wantArea, tt.wantSection, tt.wantOK)
			}
		})
	}
}
