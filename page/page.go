// Package page extracts product text and images from captured HTML.
//
// Extraction follows a leaf-node strategy: only elements without child
// elements contribute text, which prevents parent/child duplication without
// hardcoding tag names. Navigation chrome, ads and cookie banners are
// excluded by tag, role, class and id.
package page

// Text is one extracted text fragment in DOM order.
type Text struct {
	Content  string `json:"content"`
	TagName  string `json:"tag_name"`
	Position int    `json:"position"`
}

// Image is one extracted image reference. OCRResult stays empty until the
// OCR step fills it in.
type Image struct {
	Src       string `json:"src"`
	Alt       string `json:"alt"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Position  int    `json:"position"`
	OCRResult string `json:"ocr_result"`
}
