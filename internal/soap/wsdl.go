package soap

import _ "embed"

//go:embed service.wsdl
var wsdl []byte

// WSDL returns the service contract document.
func WSDL() []byte {
	return wsdl
}
