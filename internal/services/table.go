// Package services maps well-known TCP ports to service names for display.
// The table is static; nothing here touches the network.
package services

// Unknown is shown for ports without a known service.
const Unknown = "unknown"

var wellKnown = map[uint16]string{
	7:     "Echo",
	9:     "Discard",
	13:    "Daytime",
	20:    "FTP Data",
	21:    "FTP",
	22:    "SSH",
	23:    "Telnet",
	25:    "SMTP",
	26:    "RSFTP",
	37:    "Time",
	53:    "DNS",
	79:    "Finger",
	80:    "HTTP",
	81:    "HTTP Alt",
	88:    "Kerberos",
	106:   "POP3PW",
	110:   "POP3",
	111:   "RPCBind",
	113:   "Ident",
	119:   "NNTP",
	135:   "MSRPC",
	139:   "NetBIOS",
	143:   "IMAP",
	144:   "NeWS",
	179:   "BGP",
	199:   "SMUX",
	389:   "LDAP",
	427:   "SLP",
	443:   "HTTPS",
	444:   "SNPP",
	445:   "SMB",
	465:   "SMTPS",
	513:   "rlogin",
	514:   "rsh",
	515:   "LPD",
	543:   "klogin",
	544:   "kshell",
	548:   "AFP",
	554:   "RTSP",
	587:   "SMTP Submission",
	631:   "IPP",
	636:   "LDAPS",
	646:   "LDP",
	873:   "rsync",
	990:   "FTPS",
	993:   "IMAPS",
	995:   "POP3S",
	1433:  "MSSQL",
	1521:  "Oracle",
	1723:  "PPTP",
	1900:  "UPnP",
	2049:  "NFS",
	2121:  "FTP Alt",
	3000:  "HTTP Dev",
	3128:  "Squid",
	3306:  "MySQL",
	3389:  "RDP",
	5000:  "UPnP Alt",
	5060:  "SIP",
	5432:  "PostgreSQL",
	5900:  "VNC",
	6000:  "X11",
	6379:  "Redis",
	8000:  "HTTP Alt",
	8008:  "HTTP Alt",
	8080:  "HTTP Proxy",
	8081:  "HTTP Alt",
	8443:  "HTTPS Alt",
	8888:  "HTTP Alt",
	9100:  "JetDirect",
	10000: "Webmin",
	27017: "MongoDB",
}

// Lookup returns the service name for port and whether one is known.
func Lookup(port uint16) (string, bool) {
	name, ok := wellKnown[port]
	return name, ok
}

// Name returns the service name for port, or Unknown.
func Name(port uint16) string {
	if name, ok := wellKnown[port]; ok {
		return name
	}
	return Unknown
}
