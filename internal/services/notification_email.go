package services

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
)

// EmailService handles sending emails via SMTP
type EmailService struct{}

// NewEmailService creates a new email service
func NewEmailService() *EmailService {
	return &EmailService{}
}

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	FromName string
	FromAddr string
}

// GetConfig retrieves email configuration from the settings table
func (s *EmailService) GetConfig() (*EmailConfig, error) {
	host := getSettingString("smtp_host", "")
	if host == "" {
		return nil, fmt.Errorf("SMTP host not configured")
	}

	username := getSettingString("smtp_username", "")
	fromAddr := getSettingString("smtp_from_email", "")
	if fromAddr == "" {
		fromAddr = username
	}

	return &EmailConfig{
		Host:     host,
		Port:     getSettingString("smtp_port", "587"),
		Username: username,
		Password: getSettingString("smtp_password", ""),
		FromName: getSettingString("smtp_from_name", ""),
		FromAddr: fromAddr,
	}, nil
}

// Send sends one physical message with HTML body and optional attachments.
// Attachments arrive base64-encoded and are embedded as-is.
func (s *EmailService) Send(to []string, subject, htmlBody string, attachments []Attachment, cc, bcc []string) error {
	config, err := s.GetConfig()
	if err != nil {
		return err
	}
	return s.SendWithConfig(config, to, subject, htmlBody, attachments, cc, bcc)
}

// SendWithConfig sends a message with specific config (useful for testing)
func (s *EmailService) SendWithConfig(config *EmailConfig, to []string, subject, htmlBody string, attachments []Attachment, cc, bcc []string) error {
	if config.Host == "" || config.Port == "" {
		return fmt.Errorf("SMTP not configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	msg := buildMessage(config, to, cc, subject, htmlBody, attachments)

	// Bcc recipients receive the message but never appear in headers
	rcpts := make([]string, 0, len(to)+len(cc)+len(bcc))
	rcpts = append(rcpts, to...)
	rcpts = append(rcpts, cc...)
	rcpts = append(rcpts, bcc...)

	addr := fmt.Sprintf("%s:%s", config.Host, config.Port)

	// Determine if we should use TLS
	port := config.Port
	useTLS := port == "465"
	useStartTLS := port == "587" || port == "25"

	var auth smtp.Auth
	if config.Username != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	if useTLS {
		// Direct TLS connection (port 465)
		return s.sendWithTLS(addr, config, auth, rcpts, msg)
	} else if useStartTLS {
		// STARTTLS connection (port 587)
		return s.sendWithStartTLS(addr, config, auth, rcpts, msg)
	}
	// Plain connection
	return smtp.SendMail(addr, auth, config.FromAddr, rcpts, msg)
}

// buildMessage assembles the MIME message: a single HTML part, or
// multipart/mixed when attachments are present
func buildMessage(config *EmailConfig, to, cc []string, subject, htmlBody string, attachments []Attachment) []byte {
	from := config.FromAddr
	if config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", config.FromName, config.FromAddr)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	if len(cc) > 0 {
		b.WriteString(fmt.Sprintf("Cc: %s\r\n", strings.Join(cc, ", ")))
	}
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	if len(attachments) == 0 {
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
		b.WriteString("\r\n")
		b.WriteString(htmlBody)
		return []byte(b.String())
	}

	boundary := strings.ReplaceAll(uuid.New().String(), "-", "")
	b.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n", boundary))
	b.WriteString("\r\n")

	b.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")

	for _, att := range attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		b.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		b.WriteString(fmt.Sprintf("Content-Type: %s; name=\"%s\"\r\n", contentType, att.Name))
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		b.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n", att.Name))
		b.WriteString("\r\n")
		b.WriteString(wrapBase64(att.Content))
		b.WriteString("\r\n")
	}
	b.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return []byte(b.String())
}

// wrapBase64 folds base64 content at 76 columns per RFC 2045
func wrapBase64(content string) string {
	const lineLen = 76
	var b strings.Builder
	for len(content) > lineLen {
		b.WriteString(content[:lineLen])
		b.WriteString("\r\n")
		content = content[lineLen:]
	}
	b.WriteString(content)
	return b.String()
}

// sendWithTLS sends email using direct TLS (port 465)
func (s *EmailService) sendWithTLS(addr string, config *EmailConfig, auth smtp.Auth, rcpts []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: config.Host,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial failed: %v", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, config.Host)
	if err != nil {
		return fmt.Errorf("SMTP client failed: %v", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth failed: %v", err)
		}
	}

	return transmit(client, config.FromAddr, rcpts, msg)
}

// sendWithStartTLS sends email using STARTTLS (port 587)
func (s *EmailService) sendWithStartTLS(addr string, config *EmailConfig, auth smtp.Auth, rcpts []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("SMTP dial failed: %v", err)
	}
	defer client.Close()

	if err := client.Hello("localhost"); err != nil {
		return fmt.Errorf("HELLO failed: %v", err)
	}

	tlsConfig := &tls.Config{
		ServerName: config.Host,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("STARTTLS failed: %v", err)
	}

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth failed: %v", err)
		}
	}

	return transmit(client, config.FromAddr, rcpts, msg)
}

// transmit runs the MAIL FROM / RCPT TO / DATA sequence on an open client
func transmit(client *smtp.Client, from string, rcpts []string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM failed: %v", err)
	}

	for _, rcpt := range rcpts {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s failed: %v", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %v", err)
	}

	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("Write failed: %v", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("Close failed: %v", err)
	}

	return client.Quit()
}

// TestConnection tests the SMTP connection
func (s *EmailService) TestConnection(config *EmailConfig) error {
	if config.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if config.Port == "" {
		return fmt.Errorf("SMTP port is required")
	}

	addr := fmt.Sprintf("%s:%s", config.Host, config.Port)
	port := config.Port

	if port == "465" {
		// Test TLS connection
		tlsConfig := &tls.Config{
			ServerName: config.Host,
		}
		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("TLS connection failed: %v", err)
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, config.Host)
		if err != nil {
			return fmt.Errorf("SMTP client failed: %v", err)
		}
		defer client.Close()

		if config.Username != "" && config.Password != "" {
			auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("Authentication failed: %v", err)
			}
		}

		return client.Quit()
	}

	// Test STARTTLS or plain connection
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("Connection failed: %v", err)
	}
	defer client.Close()

	if port == "587" || port == "25" {
		tlsConfig := &tls.Config{
			ServerName: config.Host,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("STARTTLS failed: %v", err)
		}
	}

	if config.Username != "" && config.Password != "" {
		auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("Authentication failed: %v", err)
		}
	}

	return client.Quit()
}

// SendTestEmail sends a test email
func (s *EmailService) SendTestEmail(config *EmailConfig, toEmail string) error {
	company := getSettingString("company_name", "Acknowledgement Portal")
	subject := fmt.Sprintf("%s - Test Email", company)
	body := `
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #3b82f6; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; border-top: none; border-radius: 0 0 8px 8px; }
        .success { color: #059669; font-weight: bold; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>` + company + `</h1>
        </div>
        <div class="content">
            <h2>SMTP Configuration Test</h2>
            <p class="success">Your email configuration is working correctly!</p>
            <p>This is a test email sent from the acknowledgement portal to verify that SMTP settings are configured properly.</p>
            <hr>
            <p><small>If you received this email, completion notifications are ready to go out.</small></p>
        </div>
    </div>
</body>
</html>
`
	return s.SendWithConfig(config, []string{toEmail}, subject, strings.TrimSpace(body), nil, nil, nil)
}
