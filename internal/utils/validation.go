package utils

import (
	"regexp"
	"strconv"
)

var (
	registryNameRegex  = regexp.MustCompile(`^[a-z0-9]{5,50}$`)
	resourceGroupRegex = regexp.MustCompile(`^[-\w._()]{0,89}[-\w_()]$`)
	containerNameRegex = regexp.MustCompile(`^[a-z0-9](?:-?[a-z0-9]+)*$`)
	dnsLabelRegex      = regexp.MustCompile(`^[a-z][a-z0-9-]{1,61}[a-z0-9]$`)
)

// IsValidRegistryName reports whether name is accepted by ACR: 5-50 lowercase alphanumerics.
func IsValidRegistryName(name string) bool {
	return registryNameRegex.MatchString(name)
}

func IsValidResourceGroupName(name string) bool {
	return resourceGroupRegex.MatchString(name)
}

// IsValidContainerName checks container group names, which are limited to 63 characters.
func IsValidContainerName(name string) bool {
	return len(name) <= 63 && containerNameRegex.MatchString(name)
}

func IsValidDNSLabel(label string) bool {
	return dnsLabelRegex.MatchString(label)
}

func IsValidPort(port string) bool {
	n, err := strconv.Atoi(port)
	return err == nil && n > 0 && n <= 65535
}
