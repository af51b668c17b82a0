// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"bytes"
	"html/template"
	"time"

	"github.com/taibuivan/bizaek/internal/platform/mailer"
)

// # OTP Mail Templates

var otpMailTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
	<p>{{.Intro}}</p>
	<p style="font-size: 28px; letter-spacing: 6px;"><strong>{{.Code}}</strong></p>
	<p>This code expires in {{.Minutes}} minutes. If you did not request it, you can ignore this email.</p>
</body>
</html>`))

type otpMailData struct {
	Intro   string
	Code    string
	Minutes int
}

const (
	subjectRegister = "Your Bizaek verification code"
	subjectReset    = "Reset your Bizaek password"
)

func registerMessage(to, code string, ttl time.Duration) mailer.Message {
	return renderOTPMessage(to, subjectRegister, "Use the code below to finish creating your account.", code, ttl)
}

func resetMessage(to, code string, ttl time.Duration) mailer.Message {
	return renderOTPMessage(to, subjectReset, "Use the code below to reset your password.", code, ttl)
}

func renderOTPMessage(to, subject, intro, code string, ttl time.Duration) mailer.Message {
	var body bytes.Buffer
	data := otpMailData{Intro: intro, Code: code, Minutes: int(ttl / time.Minute)}

	// The template is static and the data is plain text, so execution cannot fail
	// short of a programming error.
	if err := otpMailTemplate.Execute(&body, data); err != nil {
		body.Reset()
		body.WriteString(intro + " " + code)
	}

	return mailer.Message{To: to, Subject: subject, HTMLBody: body.String()}
}
