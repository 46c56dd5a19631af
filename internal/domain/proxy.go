package domain

import "time"

// ProxyProtocol enumerates the supported proxy/tunnel protocols.
type ProxyProtocol string

const (
	ProxyHTTP        ProxyProtocol = "http"
	ProxyHTTPS       ProxyProtocol = "https"
	ProxySOCKS4      ProxyProtocol = "socks4"
	ProxySOCKS5      ProxyProtocol = "socks5"
	ProxyVLESS       ProxyProtocol = "vless"
	ProxyVMess       ProxyProtocol = "vmess"
	ProxyTrojan      ProxyProtocol = "trojan"
	ProxyShadowsocks ProxyProtocol = "shadowsocks"
)

// ProxyConfig is one persisted proxy configuration row. Password is held
// encrypted at rest; callers receive and submit plaintext through the store
// layer, which handles the encrypt/decrypt boundary.
type ProxyConfig struct {
	ID              string
	Name            string
	Protocol        ProxyProtocol
	Server          string
	Port            int
	Username        string
	UUID            string
	TLS             bool
	SNI             string
	Transport       string
	CustomFieldsRaw string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
