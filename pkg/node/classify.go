package node

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/aretw0/davinci/pkg/domain"
)

// Classify maps a response to exactly one node variant. Responses that match
// no variant, including non-JSON bodies, yield a *domain.ProtocolError.
//
// Checks run in a fixed order: failure, error, success, continue. A body that
// carries both error and success markers is therefore an ErrorNode, and so is
// a 5xx without a FAILED marker.
func Classify(resp domain.Response, p *Parser, env Env) (Node, error) {
	if !resp.IsJSON() {
		return nil, &domain.ProtocolError{Status: resp.Status, Reason: "response body is not a JSON object", Body: resp.Body}
	}
	doc := resp.JSON()

	if isFailure(doc) {
		return &FailureNode{
			status:  resp.Status,
			message: firstString(doc, "message", "error.message", "error_description", "details.0.message"),
			input:   doc,
		}, nil
	}

	if isError(resp.Status, doc) {
		return &ErrorNode{
			status:  resp.Status,
			code:    firstString(doc, "code", "error.code", "error"),
			message: firstString(doc, "message", "error.message", "error_description", "details.0.message"),
			details: fieldErrors(doc),
			input:   doc,
			prior:   env.Prior,
		}, nil
	}

	if user, ok := successUser(doc, resp.Body); ok {
		return &SuccessNode{user: user, input: doc}, nil
	}

	if isContinue(doc) {
		return p.Parse(doc, env), nil
	}

	return nil, &domain.ProtocolError{Status: resp.Status, Reason: "response matches no node kind", Body: resp.Body}
}

// isFailure only trusts the body marker. A bare 5xx is transient and
// classified as an ErrorNode so the step can be retried.
func isFailure(doc gjson.Result) bool {
	return strings.EqualFold(doc.Get("status").String(), "FAILED")
}

func isError(status int, doc gjson.Result) bool {
	switch {
	case status >= 400:
		return true
	case doc.Get("code").Exists() && doc.Get("message").Exists():
		return true
	case doc.Get("error").IsObject(), doc.Get("error_description").Exists():
		return true
	case doc.Get("httpResponseCode").Int() >= 400:
		return true
	}
	return false
}

func isContinue(doc gjson.Result) bool {
	return doc.Get("form").Exists() ||
		doc.Get("_links.next.href").Exists() ||
		doc.Get("eventName").String() == "continue"
}

func successUser(doc gjson.Result, raw []byte) (*domain.User, bool) {
	u := &domain.User{
		SessionID: doc.Get("session.id").String(),
		Subject:   firstString(doc, "session.user.id", "user.id"),
		IDToken:   doc.Get("id_token").String(),
		IssuedAt:  time.Now().UTC(),
		Raw:       append([]byte(nil), raw...),
	}

	switch status := strings.ToUpper(doc.Get("status").String()); {
	case doc.Get("authorizeResponse.code").Exists():
		u.Token, u.TokenType = doc.Get("authorizeResponse.code").String(), domain.TokenAuthorizationCode
	case doc.Get("access_token").Exists():
		u.Token, u.TokenType = doc.Get("access_token").String(), domain.TokenAccess
	case doc.Get("session").IsObject():
		u.Token, u.TokenType = u.SessionID, domain.TokenSession
	case status == "COMPLETED" || status == "SUCCESS":
		u.Token, u.TokenType = doc.Get("id").String(), domain.TokenSession
	default:
		return nil, false
	}
	return u, true
}

func fieldErrors(doc gjson.Result) []FieldError {
	var out []FieldError
	doc.Get("details").ForEach(func(_, detail gjson.Result) bool {
		detail.Get("rawResponse.details").ForEach(func(_, d gjson.Result) bool {
			out = append(out, FieldError{
				Key:     d.Get("target").String(),
				Message: d.Get("message").String(),
			})
			return true
		})
		return true
	})
	return out
}

func firstString(doc gjson.Result, paths ...string) string {
	for _, p := range paths {
		if r := doc.Get(p); r.Exists() && r.Type == gjson.String && r.String() != "" {
			return r.String()
		}
	}
	return ""
}
