package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		port uint16
		want string
	}{
		{20, "FTP Data"},
		{21, "FTP"},
		{22, "SSH"},
		{23, "Telnet"},
		{25, "SMTP"},
		{53, "DNS"},
		{80, "HTTP"},
		{110, "POP3"},
		{143, "IMAP"},
		{443, "HTTPS"},
		{445, "SMB"},
		{993, "IMAPS"},
		{995, "POP3S"},
		{1433, "MSSQL"},
		{1521, "Oracle"},
		{3306, "MySQL"},
		{3389, "RDP"},
		{5432, "PostgreSQL"},
		{5900, "VNC"},
		{6379, "Redis"},
		{8080, "HTTP Proxy"},
		{8443, "HTTPS Alt"},
		{27017, "MongoDB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, ok := Lookup(tt.port)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	for _, port := range []uint16{1, 65530, 12345} {
		name, ok := Lookup(port)
		assert.False(t, ok)
		assert.Empty(t, name)
		assert.Equal(t, Unknown, Name(port))
	}
}

func TestNoEmptyNames(t *testing.T) {
	for port, name := range wellKnown {
		assert.NotEmpty(t, name, "port %d has an empty service name", port)
		assert.NotZero(t, port)
	}
}
