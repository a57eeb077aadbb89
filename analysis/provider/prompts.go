package provider

const sentimentPrompt = `You classify the sentiment of chat messages, mostly informal Spanish.

Input is a JSON array of {"index", "text"} objects. Return one result per input item:
- index: the item's index, unchanged
- label: POS (positive, affectionate, grateful, enthusiastic), NEG (negative, hostile, sad, annoyed) or NEU (neutral, informational, logistics)
- confidence: 0 to 1

Judge each message on its own. Do not skip items and do not add items.`
