package template

// ScriptTemplate is the instruction sent alongside the product image.
const ScriptTemplate = `Analyze the product in the attached image. Based on this product, create a concept for a 20-second Meta advertisement.
1.  **Develop a script** broken down into 4-5 distinct shots. Each shot description should be cinematic and detailed, focusing on visual storytelling. The script must have a strong hook in the first shot to grab attention.
2.  **For EACH shot**, create a detailed image generation prompt suitable for a text-to-image AI model like Imagen. This prompt should describe the exact visual scene for that shot, including composition, lighting, style, and mood.
Your output MUST be a JSON array of objects, following the provided schema.
{{extra}}`
