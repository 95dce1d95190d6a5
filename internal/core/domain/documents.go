package domain

// DocumentType is one of the fixed upload slots of an application
type DocumentType string

const (
	DocPhoto                DocumentType = "photo"
	DocSignature            DocumentType = "signature"
	DocCitizenshipFront     DocumentType = "citizenship_front"
	DocCitizenshipBack      DocumentType = "citizenship_back"
	DocTranscript           DocumentType = "transcript"
	DocCharacterCertificate DocumentType = "character_certificate"
	DocMigrationCertificate DocumentType = "migration_certificate"
	DocOther                DocumentType = "other"
)

// DocumentTypes lists the upload slots in form order
var DocumentTypes = []DocumentType{
	DocPhoto,
	DocSignature,
	DocCitizenshipFront,
	DocCitizenshipBack,
	DocTranscript,
	DocCharacterCertificate,
	DocMigrationCertificate,
	DocOther,
}

var requiredDocuments = map[DocumentType]bool{
	DocPhoto:            true,
	DocSignature:        true,
	DocCitizenshipFront: true,
	DocTranscript:       true,
}

// IsKnown reports whether t is a recognised upload slot
func (t DocumentType) IsKnown() bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsRequired reports whether the document type is mandatory for a complete application
func (t DocumentType) IsRequired() bool {
	return requiredDocuments[t]
}
