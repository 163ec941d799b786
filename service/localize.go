package service

import (
	"strings"

	"siemadmin/models"
)

// Localize 按 请求语言 -> en -> fallback 取文本
func Localize(text models.LocalizedText, lang, fallback string) string {
	if v := text[lang]; v != "" {
		return v
	}
	if v := text[models.FallbackLanguage]; v != "" {
		return v
	}
	return fallback
}

// NormalizeLanguage 不支持的语言回落到默认语言，缓存键因此只有固定几种
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_,;"); i > 0 {
		lang = lang[:i]
	}
	if models.IsSupportedLanguage(lang) {
		return lang
	}
	return models.DefaultLanguage
}

// ValidateLocalizedText 多语言字段必须包含全部支持语言
func ValidateLocalizedText(field string, text models.LocalizedText) error {
	if missing := text.Missing(models.RequiredLanguages); len(missing) > 0 {
		return models.NewMissingLanguagesError(field, missing)
	}
	return nil
}
