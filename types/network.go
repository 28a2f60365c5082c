package types

// NetworkInfo is one local IPv4 address peers can send to.
type NetworkInfo struct {
	InterfaceName string `json:"interface_name"`
	IPAddress     string `json:"ip_address"`
	Number        string `json:"number"`     // "#" plus the last octet
	NumberInt     int    `json:"number_int"` // the last octet
	ShareAddress  string `json:"share_address"`
}
