package morsekey

// MorseCodeMap 定义摩尔斯电码映射
// 这张表是数据，不是逻辑：必须与下游文本输出保持完全一致，不要在运行时修改
var MorseCodeMap = map[string]string{
	// 字母
	".-": "A", "-...": "B", "-.-.": "C", "-..": "D", ".": "E",
	"..-.": "F", "--.": "G", "....": "H", "..": "I", ".---": "J",
	"-.-": "K", ".-..": "L", "--": "M", "-.": "N", "---": "O",
	".--.": "P", "--.-": "Q", ".-.": "R", "...": "S", "-": "T",
	"..-": "U", "...-": "V", ".--": "W", "-..-": "X", "-.--": "Y",
	"--..": "Z",
	// 数字
	".----": "1", "..---": "2", "...--": "3", "....-": "4", ".....": "5",
	"-....": "6", "--...": "7", "---..": "8", "----.": "9", "-----": "0",
	// 标点符号
	"--..--":  ",",
	".-.-.-":  ".",
	"..--..":  "?",
	".----.":  "'",
	"-.-.--":  "!",
	"-..-.":   "/",
	"-.--.":   "(",
	"-.--.-":  ")",
	".-...":   "&",
	"---...":  ":",
	"-.-.-.":  ";",
	"-...-":   "=",
	".-.-.":   "+",
	"-....-":  "-",
	"..--.-":  "_",
	".-..-.":  "\"",
	"...-..-": "$",
	".--.-.":  "@",
}

// UnknownChar 未知序列的占位字符
// 解码是全函数：查不到的序列不报错，统一输出这个占位符
const UnknownChar = "?"

// Decode 把一段点划序列解码为字符
// 任何输入都有输出，空串和未知序列都返回 UnknownChar
func Decode(symbols string) string {
	if char, ok := MorseCodeMap[symbols]; ok {
		return char
	}
	return UnknownChar
}
