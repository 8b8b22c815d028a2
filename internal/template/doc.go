// Package template defines the static shapes rendered by the engine.
//
// A Template describes one call site: its root nodes, their tags, static
// attributes and static text, plus numbered dynamic slots that are filled
// with fresh values on every render. Templates are immutable once built and
// shared by pointer across every instance of the call site.
//
// Dynamic slots come in two flavours:
//   - node slots, which hold text, placeholders, fragments or components
//   - attribute slots, which hold one attribute or event listener on an element
//
// Slot numbers must be dense (0..n-1) and unique within a template. New
// computes the path from the template roots to every slot so the engine and
// renderers can address slots without walking the tree.
//
// This package imports nothing internal except canonical.
package template
