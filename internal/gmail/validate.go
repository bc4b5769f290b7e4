package gmail

import "fmt"

// ValidateListResponse checks a decoded list response. A single
// violation aborts processing of the whole response; there is no
// partial salvage.
func ValidateListResponse(resp *ListResponse) error {
	for i, ref := range resp.Messages {
		if ref.ID == "" {
			return &ValidationError{
				Path:    fmt.Sprintf("messages[%d].id", i),
				Message: "missing or empty",
			}
		}
	}
	return nil
}

// ValidateMessage checks a decoded message detail response, walking
// the part tree to arbitrary depth.
func ValidateMessage(msg *Message) error {
	if msg.ID == "" {
		return &ValidationError{Path: "id", Message: "missing or empty"}
	}
	if msg.Payload == nil {
		return &ValidationError{Path: "payload", Message: "missing"}
	}
	return validatePart(msg.Payload, "payload")
}

// validatePart validates one node of the part tree and recurses into
// its children, accumulating the field path as it descends.
func validatePart(part *MessagePart, path string) error {
	if part.MimeType == "" {
		return &ValidationError{Path: path + ".mimeType", Message: "missing or empty"}
	}
	for i := range part.Headers {
		if part.Headers[i].Name == "" {
			return &ValidationError{
				Path:    fmt.Sprintf("%s.headers[%d].name", path, i),
				Message: "missing or empty",
			}
		}
	}
	if part.Body.Size < 0 {
		return &ValidationError{Path: path + ".body.size", Message: "negative"}
	}
	for i := range part.Parts {
		if err := validatePart(&part.Parts[i], fmt.Sprintf("%s.parts[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}
