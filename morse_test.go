package morsekey

import "testing"

func TestDecodeLetters(t *testing.T) {
	cases := map[string]string{
		".-":   "A",
		"....": "H",
		".":    "E",
		"---":  "O",
		"...":  "S",
		"-":    "T",
		"--..": "Z",
	}
	for symbols, want := range cases {
		if got := Decode(symbols); got != want {
			t.Errorf("Decode(%q) = %q, want %q", symbols, got, want)
		}
	}
}

func TestDecodeDigitsAndPunctuation(t *testing.T) {
	cases := map[string]string{
		".----":   "1",
		"-----":   "0",
		"...--":   "3",
		"..--..":  "?",
		".-.-.-":  ".",
		"--..--":  ",",
		".-...":   "&",
		".--.-.":  "@",
		"...-..-": "$",
		"-..-.":   "/",
	}
	for symbols, want := range cases {
		if got := Decode(symbols); got != want {
			t.Errorf("Decode(%q) = %q, want %q", symbols, got, want)
		}
	}
}

// 解码是全函数：任何输入都有输出，不会 panic
func TestDecodeUnknownSequences(t *testing.T) {
	unknowns := []string{
		"",
		"........",
		".-.-.-.-.-",
		"x",
		"- -",
	}
	for _, symbols := range unknowns {
		if got := Decode(symbols); got != UnknownChar {
			t.Errorf("Decode(%q) = %q, want %q", symbols, got, UnknownChar)
		}
	}
}

func TestDecodeDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		for symbols, want := range MorseCodeMap {
			if got := Decode(symbols); got != want {
				t.Fatalf("Decode(%q) = %q, want %q", symbols, got, want)
			}
		}
	}
}

// 26 字母 + 10 数字 + 18 标点
func TestMorseCodeMapSize(t *testing.T) {
	if len(MorseCodeMap) != 54 {
		t.Fatalf("MorseCodeMap has %d entries, want 54", len(MorseCodeMap))
	}
}
