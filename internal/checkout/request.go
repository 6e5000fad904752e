package checkout

import (
	"strings"

	dErrors "aerostore/pkg/domain-errors"
	"aerostore/pkg/email"
)

// Request is the validated checkout input. Handlers build it from the form
// body; everything downstream consumes only this type, never raw form
// values. The cart itself is implicit and read from the session.
type Request struct {
	ContactEmail       string
	ContactName        string
	ConsentDeclared    bool
	Sensitive          SensitiveFields
	EndUserCertificate string
	SignatureDocument  string
}

// Validate applies the fail-fast policy: these checks reject a checkout
// before any transaction opens. allowedDomains lists institutional email
// suffixes permitted to place orders.
func (r *Request) Validate(allowedDomains []string) error {
	r.ContactEmail = email.Fold(r.ContactEmail)
	r.ContactName = strings.TrimSpace(r.ContactName)
	r.EndUserCertificate = strings.TrimSpace(r.EndUserCertificate)
	r.SignatureDocument = strings.TrimSpace(r.SignatureDocument)

	if r.ContactEmail == "" {
		return dErrors.New(dErrors.CodeValidation, "contact email is required")
	}
	if !email.HasAllowedDomain(r.ContactEmail, allowedDomains) {
		return dErrors.New(dErrors.CodeValidation, "contact email must belong to an authorized institutional domain")
	}
	if !r.ConsentDeclared {
		return dErrors.New(dErrors.CodeValidation, "the end-use declaration must be affirmed")
	}
	if r.EndUserCertificate == "" {
		return dErrors.New(dErrors.CodeValidation, "an end-user certificate reference is required")
	}
	return nil
}
