package detect

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads the class labels a Model was trained with from a text
// file holding one label per line. Blank trailing lines are ignored
func LoadLabels(file string) ([]string, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening labels file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var labels []string

	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading labels file: %w", err)
	}

	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}

	return labels, nil
}

// Label returns the label of the class or its number when out of range
func Label(labels []string, class int) string {
	if class >= 0 && class < len(labels) {
		return labels[class]
	}
	return fmt.Sprintf("class %d", class)
}
