package handler

import (
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ThreeDSecureHandler serves the two browser-facing 3DS pages: the iframe
// host that forwards the cardholder to the ACS, and the notification
// endpoint the ACS posts the challenge result back to.
type ThreeDSecureHandler struct {
	logger *zap.Logger
}

func NewThreeDSecureHandler(logger *zap.Logger) *ThreeDSecureHandler {
	return &ThreeDSecureHandler{logger: logger}
}

// The iframe page auto-submits the challenge request to the ACS. A 3DS2
// flow posts creq; the legacy fallback posts PaReq/MD/TermUrl.
var iframeTemplate = template.Must(template.New("threed-secure-iframe").Parse(`<!DOCTYPE html>
<html>
<head><title>Card authentication</title></head>
<body onload="document.forms[0].submit()">
  <form action="{{.AcsURL}}" method="post">
    {{if .CReq}}<input type="hidden" name="creq" value="{{.CReq}}" />{{end}}
    {{if .PaReq}}<input type="hidden" name="PaReq" value="{{.PaReq}}" />{{end}}
    {{if .MD}}<input type="hidden" name="MD" value="{{.MD}}" />{{end}}
    {{if .TermURL}}<input type="hidden" name="TermUrl" value="{{.TermURL}}" />{{end}}
    <noscript><input type="submit" value="Continue" /></noscript>
  </form>
</body>
</html>
`))

// The response page runs inside the challenge iframe after the ACS
// redirects back. It hands the result to the checkout page. Field names
// are preserved exactly as the ACS posted them.
var responseTemplate = template.Must(template.New("threed-secure-response").Parse(`<!DOCTYPE html>
<html>
<head><title>Card authentication</title></head>
<body>
  <script>
    window.parent.dispatchEvent(new CustomEvent('opayo_threed_secure_response', {
      detail: {
        cres: {{.CRes}},
        PaRes: {{.PaRes}},
        md: {{.MD}},
        mdx: {{.MDX}}
      }
    }));
  </script>
</body>
</html>
`))

type iframeData struct {
	AcsURL  string
	CReq    string
	PaReq   string
	MD      string
	TermURL string
}

type responseData struct {
	CRes  string
	PaRes string
	MD    string
	MDX   string
}

// Iframe renders the page hosting the issuer challenge.
func (h *ThreeDSecureHandler) Iframe(c echo.Context) error {
	data := iframeData{
		AcsURL:  c.QueryParam("acsUrl"),
		CReq:    c.QueryParam("creq"),
		PaReq:   c.QueryParam("pareq"),
		MD:      c.QueryParam("md"),
		TermURL: c.QueryParam("termUrl"),
	}
	if data.AcsURL == "" {
		return c.String(http.StatusBadRequest, "missing acsUrl")
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return iframeTemplate.Execute(c.Response(), data)
}

// Response is the notification URL. The ACS posts cres (3DS2) or
// PaRes/md (legacy) here as form fields; mdx carries the merchant data
// through the 3DS2 flow.
func (h *ThreeDSecureHandler) Response(c echo.Context) error {
	data := responseData{
		CRes:  c.FormValue("cres"),
		PaRes: c.FormValue("PaRes"),
		MD:    c.FormValue("md"),
		MDX:   c.FormValue("mdx"),
	}

	h.logger.Debug("3DS notification received",
		zap.Bool("has_cres", data.CRes != ""),
		zap.Bool("has_pares", data.PaRes != ""))

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return responseTemplate.Execute(c.Response(), data)
}
