// Package compiler turns template shapes authored as CUE data into
// template.Template values.
//
// Templates live under the top-level "template" field, one per label:
//
//	template: card: {
//		id: "app:card" // optional, defaults to the label
//		roots: [{
//			tag: "div"
//			attrs: [{name: "class", value: "card"}, {dynamic: 0}]
//			children: [
//				{tag: "h2", children: [{text: "Title"}]},
//				{dynamic: 0},
//			]
//		}]
//	}
//
// A node sets exactly one of tag, text or dynamic. An attribute is either
// {name, value, namespace?} or {dynamic: slot}. Compile errors carry the CUE
// source position; Validate adds lint checks that a well-formed shape can
// still fail.
package compiler
