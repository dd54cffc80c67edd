package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/dellqs/qsintake/internal/runner"
)

// claudeCLI classifies through the locally authenticated claude command-line
// tool, so no API key is required.
type claudeCLI struct {
	bin    string
	runner runner.Runner
}

func (c *claudeCLI) name() string { return "claude" }

func (c *claudeCLI) complete(ctx context.Context, imagePath string) (string, error) {
	prompt := fmt.Sprintf("Please analyze this architectural drawing image at: %s\n\n%s", imagePath, classificationPrompt)

	// claude --print outputs only the response without interactive elements;
	// Read access lets the session open the image file.
	out, errb, err := c.runner.Run(ctx, c.bin,
		"--print",
		"--allowedTools", "Read",
		"-p", prompt,
		imagePath,
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("claude CLI timed out during image classification: %w", ctx.Err())
		}
		stderr := strings.TrimSpace(string(errb))
		if stderr != "" {
			return "", fmt.Errorf("claude CLI failed: %s: %w", stderr, err)
		}
		return "", fmt.Errorf("claude CLI failed: %w", err)
	}
	return string(out), nil
}
