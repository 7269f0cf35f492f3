package frontend

import "github.com/iancoleman/strcase"

// normalizeIdent normalises a front-end's raw function-symbol, location or
// variable name into the printable identifier fresh-name allocation
// (vars.Manager.Fresh, its.Graph.AddLocation) stores as the base for
// disambiguation. Front-end input is free-form (KoAT/T2 names may mix case
// and punctuation the teacher's identifier convention does not expect
// downstream in proof output), so every name crossing into the its/vars
// model goes through this first. Lookup tables stay keyed by the original
// source spelling; only the stored display name is normalised.
func normalizeIdent(name string) string {
	return strcase.ToSnake(name)
}
