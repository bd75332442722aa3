package provision

import (
	"fmt"
	"math/rand"
)

const dnsLabelPrefix = "dns-um-"

// NewDNSLabel returns the prefix followed by four random digits.
func NewDNSLabel() string {
	return fmt.Sprintf("%s%04d", dnsLabelPrefix, rand.Intn(10000))
}
