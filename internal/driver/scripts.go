package driver

// Element scripts take (node, arg); page scripts take (arg).
const (
	scriptClick = `(node) => {
	if (node instanceof HTMLElement) {
		node.click();
	}
}`

	scriptSetValue = `(node, value) => {
	if (!(node instanceof HTMLInputElement) && !(node instanceof HTMLTextAreaElement)) {
		return false;
	}
	node.value = '';
	node.value = value;
	node.dispatchEvent(new Event('input', { bubbles: true }));
	node.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

	scriptScrollToFraction = `(fraction) => {
	window.scrollTo(0, document.body.scrollHeight * fraction);
}`
)
