// Package model contains the request and result types shared by the transport,
// service and transform layers. It holds no business logic.
package model

// Kind names one transformation offered by the gateway.
type Kind string

const (
	KindCompress  Kind = "compress"
	KindEncrypt   Kind = "encrypt"
	KindDecrypt   Kind = "decrypt"
	KindWatermark Kind = "watermark"
	KindPDFToDOCX Kind = "pdf-to-docx"
	KindPDFToTXT  Kind = "pdf-to-txt"
	KindDOCXToPDF Kind = "docx-to-pdf"
)

// Kinds lists every supported kind in route order.
func Kinds() []Kind {
	return []Kind{
		KindCompress,
		KindEncrypt,
		KindDecrypt,
		KindWatermark,
		KindPDFToDOCX,
		KindPDFToTXT,
		KindDOCXToPDF,
	}
}

func (k Kind) String() string { return string(k) }

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	for _, v := range Kinds() {
		if v == k {
			return true
		}
	}
	return false
}
