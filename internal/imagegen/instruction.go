package imagegen

import (
	"fmt"
	"strings"

	"kfashion/internal/domain"
)

// PromptInput carries the selection that drives prompt construction.
type PromptInput struct {
	Mode       domain.Mode
	Gender     domain.Gender
	Background domain.Background
	Locale     domain.Locale
}

type promptTemplate struct {
	intro   string
	subject string
	gender  string // empty when the mode ignores gender
	body    string
	product string
	quality string
	safety  string
}

type promptCatalog struct {
	sceneLabel string
	autoScene  string
	templates  map[domain.Mode]promptTemplate
}

var promptCatalogs = map[domain.Locale]promptCatalog{
	domain.LocaleVI: {
		sceneLabel: "BỐI CẢNH: ",
		autoScene:  "Bạn được toàn quyền sáng tạo! Hãy chọn một bối cảnh (studio, ngoại cảnh, lifestyle...) chuyên nghiệp và ấn tượng nhất ĐỂ LÀM NỔI BẬT sản phẩm này. Bối cảnh phải hòa hợp với phong cách của mẫu, có ánh sáng cao cấp và làm cho sản phẩm trông thật đắt tiền, thu hút.",
		templates: map[domain.Mode]promptTemplate{
			domain.ModeClothing: {
				intro:   "Tạo một hình ảnh thời trang thương mại chân thực của MỘT TRẺ EM đang mặc sản phẩm quần áo được tải lên.",
				subject: "NHÂN VẬT: Một trẻ em duy nhất, 8–12 tuổi. Khuôn mặt baby Hàn Quốc: mềm mại, dễ thương, mắt hiền, mũi nhỏ, da trẻ em mịn.",
				gender:  "GIỚI TÍNH: ",
				body:    "CƠ THỂ: Tỷ lệ trẻ 8–12 tuổi, đầu to hơn người lớn, chân KHÔNG dài kiểu người mẫu, tư thế tự nhiên.",
				product: "QUẦN ÁO (CỰC KỲ QUAN TRỌNG): Mặc CHÍNH XÁC bộ quần áo đã tải lên. Giữ nguyên 100% thiết kế gốc: màu sắc, họa tiết, chất liệu, đường may. Không redesign, không stylize. Fit đúng cơ thể trẻ em, nếp vải tự nhiên.",
				quality: "CHẤT LƯỢNG: Ảnh thương mại chân thực, độ phân giải cao, ánh sáng tự nhiên, không watermark, không chữ, không logo.",
				safety:  "AN TOÀN: Rõ ràng là trẻ em, không tạo dáng gợi cảm, không trang điểm.",
			},
			domain.ModeFootwear: {
				intro:   "Tạo một hình ảnh thời trang thương mại chân thực tập trung vào CHÂN VÀ BÀN CHÂN của MỘT TRẺ EM đang mang sản phẩm giày dép được tải lên.",
				subject: "NHÂN VẬT: Trẻ em 8–12 tuổi. CHỈ hiển thị chân và bàn chân. Không lộ mặt, không lộ thân trên.",
				body:    "CHÂN & DA: Chân trẻ em thon gọn, tỷ lệ đúng độ tuổi. Da mịn, không cơ bắp, không gân. Tư thế đứng hoặc bước đi nhẹ nhàng.",
				product: "GIÀY DÉP (CỰC KỲ QUAN TRỌNG): Giữ nguyên 100% thiết kế giày gốc: đế, màu sắc, chất liệu, đường may. Không thay đổi, không thêm phụ kiện. Giày fit đúng kích thước chân trẻ em. Đặt chân chạm đất tự nhiên có bóng đổ thật. Không méo giày, không giày lơ lửng.",
				quality: "CHẤT LƯỢNG: Ảnh thương mại chân thực, nét căng, focus vào giày, có thể xóa phông nhẹ. Không chữ, không watermark, không logo.",
				safety:  "AN TOÀN: Rõ ràng là chân trẻ em, không góc máy nhạy cảm, an toàn thương mại.",
			},
		},
	},
	domain.LocaleEN: {
		sceneLabel: "SETTING: ",
		autoScene:  "You have full creative freedom! Choose the most professional and striking setting (studio, outdoor, lifestyle...) that MAKES THIS PRODUCT STAND OUT. The setting must suit the model's style, use premium lighting, and make the product look high-end and appealing.",
		templates: map[domain.Mode]promptTemplate{
			domain.ModeClothing: {
				intro:   "Create a realistic commercial fashion photo of ONE CHILD wearing the uploaded clothing product.",
				subject: "SUBJECT: A single child, 8–12 years old. Soft, cute Korean baby face, gentle eyes, small nose, smooth child skin.",
				gender:  "GENDER: ",
				body:    "BODY: Proportions of an 8–12 year old, head larger than an adult's, legs NOT elongated like a runway model, natural pose.",
				product: "CLOTHING (CRITICAL): Wear EXACTLY the uploaded outfit. Keep 100% of the original design: colors, patterns, fabric, stitching. No redesign, no stylizing. Fit the child's body with natural fabric folds.",
				quality: "QUALITY: Realistic commercial photo, high resolution, natural light, no watermark, no text, no logo.",
				safety:  "SAFETY: Clearly a child, no suggestive poses, no makeup.",
			},
			domain.ModeFootwear: {
				intro:   "Create a realistic commercial fashion photo focused on the LEGS AND FEET of ONE CHILD wearing the uploaded footwear product.",
				subject: "SUBJECT: A child 8–12 years old. Show ONLY legs and feet. No face, no upper body.",
				body:    "LEGS & SKIN: Slim child legs with age-accurate proportions. Smooth skin, no muscle definition, no veins. Standing or walking gently.",
				product: "FOOTWEAR (CRITICAL): Keep 100% of the original shoe design: sole, colors, material, stitching. No changes, no added accessories. Shoes fit a child's foot size. Feet touch the ground naturally with real shadows. No warped shoes, no floating shoes.",
				quality: "QUALITY: Realistic commercial photo, tack sharp, focus on the shoes, light background blur allowed. No text, no watermark, no logo.",
				safety:  "SAFETY: Clearly a child's legs, no sensitive camera angles, commercially safe.",
			},
		},
	},
}

// BuildPrompt renders the generation prompt for in. It is deterministic and
// has no side effects.
func BuildPrompt(in PromptInput) (string, error) {
	catalog, ok := promptCatalogs[in.Locale]
	if !ok {
		catalog = promptCatalogs[domain.DefaultLocale]
	}
	tpl, ok := catalog.templates[in.Mode]
	if !ok {
		return "", fmt.Errorf("build prompt: %w: %q", domain.ErrUnsupportedMode, in.Mode)
	}
	if !domain.ValidBackground(in.Mode, in.Background) {
		return "", fmt.Errorf("build prompt: %w: %q for %s", domain.ErrUnsupportedBackground, in.Background, in.Mode)
	}

	scene := catalog.autoScene
	if in.Background != domain.BackgroundAuto {
		scene = in.Background.Label(in.Locale)
	}

	lines := []string{tpl.intro, tpl.subject}
	if tpl.gender != "" {
		lines = append(lines, tpl.gender+string(in.Gender))
	}
	lines = append(lines, tpl.body, tpl.product, catalog.sceneLabel+scene, tpl.quality, tpl.safety)
	return strings.Join(lines, "\n"), nil
}
