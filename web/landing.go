package web

import _ "embed"

//go:embed index.html
var indexHTML []byte

// Shell returns a copy of the console's HTML document. Pages are rendered by
// filling the mount anchor (and the nav anchor) of this document.
func Shell() []byte {
	return append([]byte(nil), indexHTML...)
}
