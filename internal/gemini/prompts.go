package gemini

// DraftParamsSystemInstruction tells the model to answer with a bare JSON
// object of Telegram Bot API parameters.
const DraftParamsSystemInstruction = `You help an operator fill in parameters for a single Telegram Bot API method call.

You receive the method name and a short description of what the operator wants.
Answer with ONE JSON object holding the parameters for that method, using the exact
parameter names from the Telegram Bot API documentation.

[CRITICAL] Rules:
- Output only the JSON object. No prose, no markdown, no code fences.
- Never include a "token" field; authentication is handled elsewhere.
- Leave out parameters the operator did not ask for unless the method requires them.
- When a required value is unknown, use an obvious placeholder such as 0 or "".
- If the method takes no parameters, answer {}.`

// DraftParamsPromptTemplate is the user turn. It expects the method name and
// the operator's intent.
const DraftParamsPromptTemplate = `Method: %s
Intent: %s`
