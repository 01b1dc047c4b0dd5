package renameengine

// builtinGlobals is the built-in Web/Node global list that the collision
// check (spec §4.6) consults under both uniqueNames policies. Curated to
// cover ECMAScript built-ins plus the Web/DOM and Node/CommonJS globals most
// likely to appear as free identifiers in minified bundles.
var builtinGlobals = buildGlobalSet(
	// ECMAScript built-ins.
	"Object", "Array", "Function", "Boolean", "Symbol", "Promise", "Proxy",
	"Reflect", "Map", "Set", "WeakMap", "WeakSet", "JSON", "Math", "Date",
	"RegExp", "Error", "TypeError", "RangeError", "ReferenceError",
	"SyntaxError", "EvalError", "URIError", "Number", "String", "BigInt",
	"ArrayBuffer", "SharedArrayBuffer", "DataView", "Int8Array", "Uint8Array",
	"Uint8ClampedArray", "Int16Array", "Uint16Array", "Int32Array",
	"Uint32Array", "Float32Array", "Float64Array", "Infinity", "NaN",
	"undefined", "globalThis", "isNaN", "isFinite", "parseInt", "parseFloat",
	"encodeURIComponent", "decodeURIComponent", "encodeURI", "decodeURI",

	// Web/DOM globals.
	"window", "document", "console", "fetch", "localStorage",
	"sessionStorage", "navigator", "location", "history", "XMLHttpRequest",
	"setTimeout", "clearTimeout", "setInterval", "clearInterval",
	"requestAnimationFrame", "cancelAnimationFrame", "alert", "confirm",
	"prompt", "Event", "CustomEvent", "Node", "Element", "HTMLElement",

	// Node/CommonJS globals.
	"require", "module", "exports", "process", "Buffer", "global",
	"__dirname", "__filename", "setImmediate", "clearImmediate",
)

func buildGlobalSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// IsBuiltinGlobal reports whether name is a recognized Web/Node global.
func IsBuiltinGlobal(name string) bool {
	return builtinGlobals[name]
}
