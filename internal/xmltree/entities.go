package xmltree

// htmlEntities maps HTML named entities that show up in hand-edited package
// and NCX documents to their characters. encoding/xml only knows the five
// predefined XML entities and rejects the rest.
var htmlEntities = map[string]string{
	"nbsp": " ", "mdash": "—", "ndash": "–",
	"hellip": "…",
	"lsquo": "‘", "rsquo": "’",
	"ldquo": "“", "rdquo": "”",
	"copy": "©", "reg": "®", "trade": "™",
	"bull": "•", "middot": "·",
	"eacute": "é", "egrave": "è",
	"ecirc": "ê", "euml": "ë",
	"aacute": "á", "agrave": "à",
	"acirc": "â", "auml": "ä",
	"iacute": "í", "igrave": "ì",
	"icirc": "î", "iuml": "ï",
	"oacute": "ó", "ograve": "ò",
	"ocirc": "ô", "ouml": "ö",
	"uacute": "ú", "ugrave": "ù",
	"ucirc": "û", "uuml": "ü",
	"ntilde": "ñ", "ccedil": "ç",
	"times": "×", "divide": "÷",
	"deg": "°", "para": "¶", "sect": "§",
	"laquo": "«", "raquo": "»",
	"iexcl": "¡", "iquest": "¿",
}
