package graph

import "strings"

// parseDepString parses a ports-tree dependency string into the PortIds
// it names. Recognized forms, space-separated:
//
//	tool:category/port
//	/path/to/ports/category/port:category/port
//	lib.so:category/port@flavor
func parseDepString(depStr string) []PortId {
	if depStr == "" {
		return nil
	}

	var ids []PortId
	for _, tok := range strings.Fields(depStr) {
		if strings.HasPrefix(tok, "/nonexistent:") {
			continue
		}

		colon := strings.Index(tok, ":")
		if colon < 0 {
			continue
		}
		origin := tok[colon+1:]

		if tag := strings.LastIndex(origin, ":"); tag > 0 {
			origin = origin[:tag]
		}

		parts := strings.Split(origin, "/")
		if len(parts) != 2 {
			continue
		}
		category := parts[0]
		nameAndFlavor := strings.SplitN(parts[1], "@", 2)
		name := nameAndFlavor[0]
		flavor := ""
		if len(nameAndFlavor) == 2 {
			flavor = nameAndFlavor[1]
		}

		ids = append(ids, PortId{Origin: category + "/" + name, Flavor: flavor})
	}
	return ids
}
