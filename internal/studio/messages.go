package studio

import (
	"fmt"

	"kfashion/internal/domain"
)

var productNames = map[domain.Locale]map[domain.Mode]string{
	domain.LocaleVI: {domain.ModeClothing: "quần áo", domain.ModeFootwear: "giày dép"},
	domain.LocaleEN: {domain.ModeClothing: "clothing", domain.ModeFootwear: "footwear"},
}

var failureMessages = map[domain.Locale]map[domain.ErrorKind]string{
	domain.LocaleVI: {
		domain.KindValidation:    "Vui lòng tải lên hình ảnh %s trước khi tạo ảnh.",
		domain.KindEmptyResult:   "Không tìm thấy ảnh trong kết quả trả về",
		domain.KindConfiguration: "Dịch vụ tạo ảnh chưa được cấu hình (thiếu hoặc sai API key).",
		domain.KindTransport:     "Có lỗi xảy ra trong quá trình tạo ảnh.",
	},
	domain.LocaleEN: {
		domain.KindValidation:    "Please upload a %s image before generating.",
		domain.KindEmptyResult:   "No image was found in the response",
		domain.KindConfiguration: "The image service is not configured (missing or invalid API key).",
		domain.KindTransport:     "Something went wrong while generating the image.",
	},
}

// Transport and configuration failures carry the service's own explanation.
var detailedMessages = map[domain.Locale]map[domain.ErrorKind]string{
	domain.LocaleVI: {
		domain.KindConfiguration: "Dịch vụ tạo ảnh chưa được cấu hình: %s",
		domain.KindTransport:     "Có lỗi xảy ra trong quá trình tạo ảnh: %s",
	},
	domain.LocaleEN: {
		domain.KindConfiguration: "The image service is not configured: %s",
		domain.KindTransport:     "Something went wrong while generating the image: %s",
	},
}

// FailureMessage renders the user-facing message for kind. A non-empty
// detail is appended verbatim for transport and configuration failures.
func FailureMessage(locale domain.Locale, kind domain.ErrorKind, mode domain.Mode, detail string) string {
	msgs, ok := failureMessages[locale]
	if !ok {
		locale = domain.DefaultLocale
		msgs = failureMessages[locale]
	}
	if kind == domain.KindValidation {
		return fmt.Sprintf(msgs[kind], productNames[locale][mode])
	}
	if detail != "" {
		if tmpl, ok := detailedMessages[locale][kind]; ok {
			return fmt.Sprintf(tmpl, detail)
		}
	}
	msg, ok := msgs[kind]
	if !ok {
		msg = msgs[domain.KindTransport]
	}
	return msg
}
