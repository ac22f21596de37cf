package selector

import "strings"

// Login form fields. Specific attribute matches come before the bare
// input fallbacks.
var (
	EmailFields = []Selector{
		Css(`input[name="username"]`),
		Css(`input[placeholder*="이메일"]`),
		Css(`input[placeholder*="Email"]`),
		Css(`input[placeholder*="email"]`),
		Css(`input[type="text"]`),
	}

	PasswordFields = []Selector{
		Css(`input[type="password"]`),
		Css(`input[placeholder*="비밀번호"]`),
		Css(`input[placeholder*="Password"]`),
		Css(`input[placeholder*="password"]`),
	}

	VerificationFields = []Selector{
		Css(`input[placeholder*="인증"]`),
		Css(`input[placeholder*="코드"]`),
		Css(`input[placeholder*="code"]`),
		Css(`input[placeholder*="verification"]`),
		Css(`input[maxlength="6"]`),
		Css(`input[type="tel"]`),
	}

	CaptchaMarkers = []Selector{
		Css(`iframe[src*="captcha"]`),
		Css(`[class*="captcha"]`),
		Css(`[id*="captcha"]`),
		Css(`div[class*="Captcha"]`),
	}

	ErrorMarkers = []Selector{
		Css(`[class*="error"]`),
		Css(`[class*="Error"]`),
		Css(`div[class*="message"]`),
	}

	LoggedInMarkers = []Selector{
		Css(`[data-e2e="profile-icon"]`),
		Css(`[class*="avatar"]`),
		Css(`[class*="Avatar"]`),
	}
)

// SubmitButtons are the login submit controls, tried in order before the
// label scan.
var SubmitButtons = []Selector{
	Css(`button[type="submit"]`),
	Css(`button[data-e2e="login-button"]`),
}

// LoginButtonLabels are the exact labels scanned for when no submit control
// is present. Two languages, exact match.
var LoginButtonLabels = []string{"로그인", "Log in", "Login"}

// VerifySubmitLabels are the case-insensitive substrings accepted as a
// verification submit control.
var VerifySubmitLabels = []string{"인증", "확인", "verify", "submit", "제출"}

// Upload page elements. The file input and iframe are CSS: queries inside an
// iframe excursion are scoped with DOM-node-relative lookups, which only CSS
// queries support.
var (
	FileInputs = []Selector{
		Css(`input[type="file"]`),
	}

	UploadIframes = []Selector{
		Css(`iframe[src*="upload"]`),
	}

	CaptionEditors = []Selector{
		Xpath(`//div[contains(@class, "DraftEditor-root")]//div[@contenteditable="true"]`),
		Xpath(`//div[@contenteditable="true"]`),
	}

	PostButtons = []Selector{
		Xpath(`//button[contains(text(), "Post") or contains(text(), "게시")]`),
		Xpath(`//button[@type="submit"]`),
	}

	UploadErrorMarkers = []Selector{
		Xpath(`//div[contains(@class, "error")]`),
	}

	PostSuccessMarkers = []Selector{
		Xpath(`//div[contains(text(), "posted") or contains(text(), "게시됨")]`),
	}
)

// URL classification. Signals are unreliable; these are best-effort
// substring checks, same as the page probes.

// IsLoginURL reports whether the URL is under the login path.
func IsLoginURL(url string) bool {
	return strings.Contains(strings.ToLower(url), "/login")
}

// IsLoggedInURL reports whether the URL is a surface only an authenticated
// session reaches.
func IsLoggedInURL(url string) bool {
	lower := strings.ToLower(url)
	for _, marker := range []string{"/foryou", "/@", "/explore"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsUploadURL reports whether the URL looks like the upload/creator surface.
func IsUploadURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, "upload") || strings.Contains(lower, "creator")
}

// IsPostSuccessURL reports whether the URL indicates a completed post.
func IsPostSuccessURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, "profile") || strings.Contains(lower, "success")
}
