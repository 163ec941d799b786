package models

// 支持的界面语言
const (
	LangKo = "ko"
	LangEn = "en"
	LangJa = "ja"
	LangZh = "zh"

	// DefaultLanguage 未指定或不支持的语言统一回落到韩语
	DefaultLanguage = LangKo
	// FallbackLanguage 请求语言缺失时的第一回退
	FallbackLanguage = LangEn
)

// RequiredLanguages 多语言字段写入时必须提供的语言
var RequiredLanguages = []string{LangKo, LangEn, LangJa, LangZh}

// LocalizedText 多语言文本，key 为语言代码
type LocalizedText map[string]string

// Missing 返回 required 中缺失或为空的语言，顺序与 required 一致
func (t LocalizedText) Missing(required []string) []string {
	var missing []string
	for _, lang := range required {
		if t[lang] == "" {
			missing = append(missing, lang)
		}
	}
	return missing
}

// IsSupportedLanguage 是否为支持的语言
func IsSupportedLanguage(lang string) bool {
	for _, l := range RequiredLanguages {
		if l == lang {
			return true
		}
	}
	return false
}
