package cdp

// staleMarker is thrown by element functions when the element has left the
// document.
const staleMarker = "stale element reference"

// findFunc looks up matches below root, or the document when root is null.
// A negative index returns the array of every match instead of one element.
const findFunc = `function(root, kind, expr, index) {
	if (root && !root.isConnected) throw new Error('` + staleMarker + `');
	const scope = root || document;
	let nodes = [];
	if (kind === 'xpath') {
		const doc = scope.ownerDocument || scope;
		const res = doc.evaluate(expr, scope, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		for (let i = 0; i < res.snapshotLength; i++) {
			const n = res.snapshotItem(i);
			if (n.nodeType === 1) nodes.push(n);
		}
	} else {
		nodes = Array.from(scope.querySelectorAll(expr));
	}
	if (index < 0) return nodes;
	return nodes[index] || null;
}`

// elementFunc wraps body as a function called with this bound to an element.
func elementFunc(body string) string {
	return `function() {
	if (!this.isConnected) throw new Error('` + staleMarker + `');
	` + body + `
}`
}

var (
	findOnElementJS = `function(kind, expr, index) { return (` + findFunc + `)(this, kind, expr, index); }`

	textJS    = elementFunc(`return (this.innerText !== undefined ? this.innerText : this.textContent || '').replace(/\s+/g, ' ').trim();`)
	tagNameJS = elementFunc(`return this.tagName.toLowerCase();`)
	attrJS    = elementFunc(`const v = this.getAttribute(arguments[0]); return v === null ? '' : v;`)
	focusJS   = elementFunc(`this.focus();`)
	clearJS   = elementFunc(`
	if ('value' in this) {
		this.value = '';
	} else if (this.isContentEditable) {
		this.textContent = '';
	}
	this.dispatchEvent(new Event('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));`)
	displayedJS = elementFunc(`
	const style = window.getComputedStyle(this);
	const rect = this.getBoundingClientRect();
	return style.display !== 'none' && style.visibility !== 'hidden' && rect.width > 0 && rect.height > 0;`)
	geometryJS = elementFunc(`
	this.scrollIntoView({block: 'center', inline: 'center'});
	const r = this.getBoundingClientRect();
	return {x: r.left + r.width / 2, y: r.top + r.height / 2, width: r.width, height: r.height,
		scrollX: window.scrollX, scrollY: window.scrollY};`)
)
