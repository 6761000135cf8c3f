package knowledge

import _ "embed"

//go:embed knowledge.yaml
var embeddedDocument []byte
