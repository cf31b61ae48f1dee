package template

// AnimationTemplate is the instruction sent ahead of the per-shot images.
// {{script_context}} receives one "shot_number: shot_description" line per shot.
const AnimationTemplate = `You are an expert in creating animation prompts for Google's Veo text-to-video model.
Your task is to animate a sequence of still images for a product advertisement.

Here is the script context for each shot:
{{script_context}}

For each of the attached images, provide a concise but powerful Veo prompt (under 250 characters) that animates it according to its script context.
The animation should be subtle but engaging, bringing the still image to life. Focus on elements like camera movement (slow zoom in, gentle pan), environmental effects (light shifting, dust motes in the air), and minor object animations. Do not change the core subject of the image.

Return a JSON array of objects, one for each image in the order they were provided.
{{extra}}`
